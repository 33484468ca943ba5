package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/pkg/catalog"
)

const (
	searchKeyPrefix = "books:search"
	// versionKey is bumped on every write; cached results are keyed by it,
	// so a bump orphans everything cached before the write.
	versionKey = "books:search:version"
)

// cachedRepository serves repeated searches from Redis. Redis failures are
// logged and the call falls through to the wrapped repository.
type cachedRepository struct {
	Repository
	rdb redis.Cmdable
	ttl time.Duration
	log *zap.Logger
}

func NewCachedRepository(repo Repository, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) Repository {
	return &cachedRepository{
		Repository: repo,
		rdb:        rdb,
		ttl:        ttl,
		log:        log.Named("cache"),
	}
}

func (r *cachedRepository) Search(ctx context.Context, term string) ([]catalog.Book, error) {
	key, err := r.key(ctx, term)
	if err != nil {
		r.log.Warn("cache version", zap.Error(err))
	} else if books, ok := r.get(ctx, key); ok {
		return books, nil
	}

	books, err := r.Repository.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	if key != "" {
		r.set(ctx, key, books)
	}
	return books, nil
}

func (r *cachedRepository) Create(ctx context.Context, book model.CreateBook) (catalog.Book, error) {
	created, err := r.Repository.Create(ctx, book)
	if err != nil {
		return catalog.Book{}, err
	}
	if err := r.rdb.Incr(ctx, versionKey).Err(); err != nil {
		r.log.Warn("cache invalidate", zap.Error(err))
	}
	return created, nil
}

func (r *cachedRepository) key(ctx context.Context, term string) (string, error) {
	ver, err := r.rdb.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", searchKeyPrefix, ver, term), nil
}

func (r *cachedRepository) get(ctx context.Context, key string) ([]catalog.Book, bool) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("cache get", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var books []catalog.Book
	if err := json.Unmarshal(data, &books); err != nil {
		r.log.Warn("cache decode", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return books, true
}

func (r *cachedRepository) set(ctx context.Context, key string, books []catalog.Book) {
	data, err := json.Marshal(books)
	if err != nil {
		r.log.Warn("cache encode", zap.Error(err))
		return
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Warn("cache set", zap.String("key", key), zap.Error(err))
	}
}
