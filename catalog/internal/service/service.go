package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/internal/model"
	catalogRepo "github.com/Astemirdum/book-search/catalog/internal/repository"
	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/query"
)

type Service struct {
	log    *zap.Logger
	repo   catalogRepo.Repository
	events EventLog
}

func NewService(repo catalogRepo.Repository, events EventLog, log *zap.Logger) *Service {
	return &Service{
		log:    log.Named("service"),
		repo:   repo,
		events: events,
	}
}

// Search normalizes text itself so wildcard characters reaching the HTTP
// boundary are always matched literally.
func (s *Service) Search(ctx context.Context, text string) ([]catalog.Book, error) {
	return s.repo.Search(ctx, query.Parse(text).Term)
}

func (s *Service) Create(ctx context.Context, book model.CreateBook) (catalog.Book, error) {
	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return catalog.Book{}, err
	}
	if err := s.events.BookCreated(created); err != nil {
		s.log.Error("events.BookCreated", zap.Int64("id", created.ID), zap.Error(err))
	}
	return created, nil
}
