package handler

import (
	"context"

	"github.com/Astemirdum/book-search/catalog/internal/model"
	"github.com/Astemirdum/book-search/catalog/internal/service"
	"github.com/Astemirdum/book-search/pkg/catalog"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CatalogService interface {
	Search(ctx context.Context, text string) ([]catalog.Book, error)
	Create(ctx context.Context, book model.CreateBook) (catalog.Book, error)
}

var _ CatalogService = (*service.Service)(nil)
