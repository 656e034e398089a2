package handler

import (
	"context"
	"time"

	"github.com/libracore/circulation-service/circulation/internal/model"
	"github.com/libracore/circulation-service/circulation/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	Issue(ctx context.Context, id int, req model.IssueBookRequest) (model.Book, error)
	Return(ctx context.Context, id int) (model.Book, error)
	ListIssued(ctx context.Context, asOf time.Time) ([]model.IssuedBook, error)
	ListBooks(ctx context.Context, filter model.BooksFilter, sortBy string) ([]model.Book, error)
	Summarize(ctx context.Context, asOf time.Time) (model.Summary, error)
}

var _ CirculationService = (*service.Service)(nil)
