package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/errs"
	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/catalog/migrations"
	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/postgres"
	"github.com/Astemirdum/book-search/pkg/query"
)

type poolConnector struct{ pool *pgxpool.Pool }

func (c poolConnector) Get(context.Context) (*pgxpool.Pool, error) { return c.pool, nil }

// setupTestDB connects to the database named by CATALOG_TEST_DATABASE_URL,
// migrates it and empties the books table. The database must be dedicated to tests.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("CATALOG_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping test: CATALOG_TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, dsn, migrations.MigrationFiles))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE books RESTART IDENTITY")
	require.NoError(t, err)
	return pool
}

func seed(t *testing.T, repo Repository, books ...model.CreateBook) {
	t.Helper()
	for _, b := range books {
		_, err := repo.Create(context.Background(), b)
		require.NoError(t, err)
	}
}

func titles(books []catalog.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestRepository_Search_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(poolConnector{pool: pool}, 0, zap.NewNop())
	ctx := context.Background()

	seed(t, repo,
		model.CreateBook{Title: "The Hobbit", Author: "J.R.R. Tolkien", Publisher: "Allen & Unwin", ISBN: "9780261102217", Price: 1200},
		model.CreateBook{Title: "Tolkien Letters", Author: "Humphrey Carpenter", Publisher: "Allen & Unwin", ISBN: "9780261102651", Price: 2500},
		model.CreateBook{Title: "War and Peace", Author: "Лев Толстой", Publisher: "Русский вестник", ISBN: "9785170906307", Price: 1800},
	)

	t.Run("author match", func(t *testing.T) {
		books, err := repo.Search(ctx, query.Parse("Толст").Term)
		require.NoError(t, err)
		assert.Equal(t, []string{"War and Peace"}, titles(books))
	})

	t.Run("tol", func(t *testing.T) {
		books, err := repo.Search(ctx, query.Parse("tol").Term)
		require.NoError(t, err)
		assert.Equal(t, []string{"The Hobbit", "Tolkien Letters"}, titles(books))
	})

	t.Run("empty query returns all books", func(t *testing.T) {
		books, err := repo.Search(ctx, query.Parse("  ").Term)
		require.NoError(t, err)
		assert.Len(t, books, 3)
	})

	t.Run("no match", func(t *testing.T) {
		books, err := repo.Search(ctx, query.Parse("silmarillion").Term)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("duplicate isbn conflicts", func(t *testing.T) {
		_, err := repo.Create(ctx, model.CreateBook{Title: "x", Author: "y", Publisher: "z", ISBN: "9780261102217", Price: 1})
		assert.ErrorIs(t, err, errs.ErrConflict)
	})
}

func TestRepository_Search_WildcardsAreLiteral_Integration(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(poolConnector{pool: pool}, 0, zap.NewNop())
	ctx := context.Background()

	seed(t, repo,
		model.CreateBook{Title: "Sale: 50% off", Author: "Shop", Publisher: "P", ISBN: "1111111111", Price: 1},
		model.CreateBook{Title: "50 ways to be off", Author: "Someone", Publisher: "P", ISBN: "2222222222", Price: 1},
		model.CreateBook{Title: "snake_case style", Author: "Dev", Publisher: "P", ISBN: "3333333333", Price: 1},
		model.CreateBook{Title: "snakescase", Author: "Dev", Publisher: "P", ISBN: "4444444444", Price: 1},
	)

	books, err := repo.Search(ctx, query.Parse("50% off").Term)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sale: 50% off"}, titles(books))

	books, err = repo.Search(ctx, query.Parse("snake_case").Term)
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case style"}, titles(books))

	books, err = repo.Search(ctx, query.Parse("%").Term)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sale: 50% off"}, titles(books))
}
