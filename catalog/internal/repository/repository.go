package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/errs"
	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/query"
)

type Repository interface {
	// Search returns books whose title or author contains term, ordered by id.
	// term must already be LIKE-escaped; an empty term matches every book.
	Search(ctx context.Context, term string) ([]catalog.Book, error)
	Create(ctx context.Context, book model.CreateBook) (catalog.Book, error)
}

// Connector hands out the shared pool, dialing it on first use.
type Connector interface {
	Get(ctx context.Context) (*pgxpool.Pool, error)
}

type repository struct {
	conn         Connector
	queryTimeout time.Duration
	log          *zap.Logger
	tracer       trace.Tracer
}

func NewRepository(conn Connector, queryTimeout time.Duration, log *zap.Logger) *repository {
	return &repository{
		conn:         conn,
		queryTimeout: queryTimeout,
		log:          log.Named("repo"),
		tracer:       otel.Tracer("github.com/Astemirdum/book-search/catalog/repository"),
	}
}

const booksTableName = `books`

var (
	qb          = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	bookColumns = []string{"id", "title", "author", "publisher", "isbn", "price"}
)

func searchQuery(term string) (string, []any, error) {
	pattern := query.Contains(term)
	return qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
		}).
		OrderBy("id").
		ToSql()
}

func createQuery(book model.CreateBook) (string, []any, error) {
	return qb.Insert(booksTableName).
		Columns("title", "author", "publisher", "isbn", "price").
		Values(book.Title, book.Author, book.Publisher, book.ISBN, book.Price).
		Suffix("RETURNING " + strings.Join(bookColumns, ", ")).
		ToSql()
}

func (r *repository) Search(ctx context.Context, term string) ([]catalog.Book, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Search",
		trace.WithAttributes(attribute.Int("search.term_length", len(term))))
	defer span.End()

	books, err := r.search(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.results", len(books)))
	return books, nil
}

func (r *repository) search(ctx context.Context, term string) ([]catalog.Book, error) {
	q, args, err := searchQuery(term)
	if err != nil {
		return nil, catalog.NewError(catalog.KindQueryExecutionFailed, errors.Wrap(err, "build search query"))
	}
	r.log.Debug("Search", zap.String("query", q), zap.Any("args", args))

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conn, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		r.log.Error("Search", zap.String("q", q), zap.Error(err))
		return nil, catalog.NewError(catalog.KindQueryExecutionFailed, errors.Wrap(err, "query books"))
	}
	defer rows.Close()

	return scanBooks(rows)
}

func scanBooks(rows pgx.Rows) ([]catalog.Book, error) {
	books := make([]catalog.Book, 0)
	for rows.Next() {
		var b catalog.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.ISBN, &b.Price); err != nil {
			return nil, catalog.NewError(catalog.KindMalformedResponse, errors.Wrap(err, "scan book"))
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.NewError(catalog.KindQueryExecutionFailed, errors.Wrap(err, "read books"))
	}
	return books, nil
}

func (r *repository) Create(ctx context.Context, book model.CreateBook) (catalog.Book, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Create")
	defer span.End()

	created, err := r.create(ctx, book)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return catalog.Book{}, err
	}
	span.SetAttributes(attribute.Int64("book.id", created.ID))
	return created, nil
}

func (r *repository) create(ctx context.Context, book model.CreateBook) (catalog.Book, error) {
	q, args, err := createQuery(book)
	if err != nil {
		return catalog.Book{}, catalog.NewError(catalog.KindQueryExecutionFailed, errors.Wrap(err, "build create query"))
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conn, err := r.acquire(ctx)
	if err != nil {
		return catalog.Book{}, err
	}
	defer conn.Release()

	var b catalog.Book
	err = conn.QueryRow(ctx, q, args...).Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.ISBN, &b.Price)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return catalog.Book{}, errs.ErrConflict
		}
		r.log.Error("Create", zap.String("q", q), zap.Error(err))
		return catalog.Book{}, catalog.NewError(catalog.KindQueryExecutionFailed, errors.Wrap(err, "insert book"))
	}
	return b, nil
}

func (r *repository) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	pool, err := r.conn.Get(ctx)
	if err != nil {
		r.log.Warn("connect", zap.Error(err))
		return nil, catalog.NewError(catalog.KindConnectionUnavailable, errors.Wrap(err, "connect"))
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		r.log.Warn("pool.Acquire", zap.Error(err))
		return nil, catalog.NewError(catalog.KindConnectionUnavailable, errors.Wrap(err, "acquire connection"))
	}
	return conn, nil
}

func (r *repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}
