package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/query"
)

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantArgs []any
	}{
		{name: "plain", raw: "tol", wantArgs: []any{"%tol%", "%tol%"}},
		{name: "empty matches all", raw: "   ", wantArgs: []any{"%%", "%%"}},
		{name: "wildcards escaped", raw: "50% off_", wantArgs: []any{`%50\% off\_%`, `%50\% off\_%`}},
		{name: "quote stays a value", raw: "O'Brien'; DROP TABLE books; --", wantArgs: []any{
			"%O'Brien'; DROP TABLE books; --%", "%O'Brien'; DROP TABLE books; --%",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := query.Parse(tt.raw).Term
			sql, args, err := searchQuery(term)
			require.NoError(t, err)

			assert.Equal(t,
				"SELECT id, title, author, publisher, isbn, price FROM books WHERE (title ILIKE $1 OR author ILIKE $2) ORDER BY id",
				sql)
			assert.Equal(t, tt.wantArgs, args)
			if term != "" {
				assert.NotContains(t, sql, term)
			}
		})
	}
}

func TestCreateQuery(t *testing.T) {
	sql, args, err := createQuery(model.CreateBook{
		Title: "The Hobbit", Author: "J.R.R. Tolkien", Publisher: "Allen & Unwin", ISBN: "9780261102217", Price: 1200,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO books (title,author,publisher,isbn,price) VALUES ($1,$2,$3,$4,$5) RETURNING id, title, author, publisher, isbn, price",
		sql)
	assert.Equal(t, []any{"The Hobbit", "J.R.R. Tolkien", "Allen & Unwin", "9780261102217", int64(1200)}, args)
}

type failingConnector struct{ err error }

func (c failingConnector) Get(context.Context) (*pgxpool.Pool, error) { return nil, c.err }

func TestRepository_ConnectionUnavailable(t *testing.T) {
	dialErr := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	repo := NewRepository(failingConnector{err: dialErr}, 0, zap.NewNop())

	_, err := repo.Search(context.Background(), "tol")
	require.ErrorIs(t, err, catalog.ErrConnectionUnavailable)
	assert.ErrorIs(t, err, dialErr)

	_, err = repo.Create(context.Background(), model.CreateBook{Title: "t"})
	assert.ErrorIs(t, err, catalog.ErrConnectionUnavailable)
}

type fakeRows struct {
	values  [][]any
	pos     int
	scanErr error
	err     error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.values[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.values[r.pos-1]
	*dest[0].(*int64) = row[0].(int64)
	for i := 1; i < 5; i++ {
		*dest[i].(*string) = row[i].(string)
	}
	*dest[5].(*int64) = row[5].(int64)
	return nil
}

func TestScanBooks(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		books, err := scanBooks(&fakeRows{values: [][]any{
			{int64(1), "The Hobbit", "J.R.R. Tolkien", "Allen & Unwin", "9780261102217", int64(1200)},
			{int64(2), "Tolkien Letters", "Humphrey Carpenter", "Allen & Unwin", "9780261102651", int64(2500)},
		}})
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, catalog.Book{
			ID: 1, Title: "The Hobbit", Author: "J.R.R. Tolkien", Publisher: "Allen & Unwin", ISBN: "9780261102217", Price: 1200,
		}, books[0])
	})

	t.Run("no rows is an empty slice", func(t *testing.T) {
		books, err := scanBooks(&fakeRows{})
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("scan failure is malformed", func(t *testing.T) {
		_, err := scanBooks(&fakeRows{
			values:  [][]any{{nil}},
			scanErr: errors.New("cannot scan NULL into *string"),
		})
		assert.ErrorIs(t, err, catalog.ErrMalformedResponse)
	})

	t.Run("rows error is execution failure", func(t *testing.T) {
		_, err := scanBooks(&fakeRows{err: &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}})
		assert.ErrorIs(t, err, catalog.ErrQueryExecutionFailed)
	})
}
