package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/pkg/catalog"
)

type memRepository struct {
	books    []catalog.Book
	searches int
	err      error
}

func (m *memRepository) Search(_ context.Context, term string) ([]catalog.Book, error) {
	m.searches++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]catalog.Book, 0)
	for _, b := range m.books {
		if strings.Contains(strings.ToLower(b.Title), strings.ToLower(term)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepository) Create(_ context.Context, book model.CreateBook) (catalog.Book, error) {
	created := catalog.Book{
		ID: int64(len(m.books) + 1), Title: book.Title, Author: book.Author,
		Publisher: book.Publisher, ISBN: book.ISBN, Price: book.Price,
	}
	m.books = append(m.books, created)
	return created, nil
}

func newCached(t *testing.T) (*miniredis.Miniredis, *memRepository, Repository) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := &memRepository{books: []catalog.Book{{ID: 1, Title: "The Hobbit", Author: "J.R.R. Tolkien"}}}
	return s, mem, NewCachedRepository(mem, rdb, time.Minute, zap.NewNop())
}

func TestCachedRepository_Search(t *testing.T) {
	ctx := context.Background()
	s, mem, repo := newCached(t)

	first, err := repo.Search(ctx, "hob")
	require.NoError(t, err)
	second, err := repo.Search(ctx, "hob")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mem.searches)
	assert.True(t, s.Exists("books:search:0:hob"))

	s.FastForward(2 * time.Minute)
	_, err = repo.Search(ctx, "hob")
	require.NoError(t, err)
	assert.Equal(t, 2, mem.searches)
}

func TestCachedRepository_CreateInvalidates(t *testing.T) {
	ctx := context.Background()
	_, mem, repo := newCached(t)

	books, err := repo.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 1)

	_, err = repo.Create(ctx, model.CreateBook{Title: "Tolkien Letters"})
	require.NoError(t, err)

	books, err = repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.Equal(t, 2, mem.searches)
}

func TestCachedRepository_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	s, mem, repo := newCached(t)
	mem.err = catalog.NewError(catalog.KindQueryExecutionFailed, nil)

	_, err := repo.Search(ctx, "hob")
	require.ErrorIs(t, err, catalog.ErrQueryExecutionFailed)
	assert.False(t, s.Exists("books:search:0:hob"))

	mem.err = nil
	books, err := repo.Search(ctx, "hob")
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestCachedRepository_RedisDown(t *testing.T) {
	ctx := context.Background()
	s, mem, repo := newCached(t)
	s.Close()

	books, err := repo.Search(ctx, "hob")
	require.NoError(t, err)
	assert.Len(t, books, 1)

	_, err = repo.Create(ctx, model.CreateBook{Title: "War and Peace"})
	require.NoError(t, err)
	assert.Equal(t, 1, mem.searches)
}
