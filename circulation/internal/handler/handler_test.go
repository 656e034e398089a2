package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libracore/circulation-service/circulation/internal/errs"
	"github.com/libracore/circulation-service/circulation/internal/handler"
	mock_handler "github.com/libracore/circulation-service/circulation/internal/handler/mocks"
	"github.com/libracore/circulation-service/circulation/internal/model"
	"github.com/libracore/circulation-service/pkg/validate"
)

func setup(t *testing.T) (*echo.Echo, *mock_handler.MockCirculationService) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	svc := mock_handler.NewMockCirculationService(c)

	h := handler.New(svc, zap.NewExample().Named("test"))
	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.POST("/api/v1/books", h.CreateBook)
	e.GET("/api/v1/books", h.GetBooks)
	e.GET("/api/v1/books/issued", h.GetIssuedBooks)
	e.GET("/api/v1/books/:id", h.GetBook)
	e.PATCH("/api/v1/books/:id", h.UpdateBook)
	e.DELETE("/api/v1/books/:id", h.DeleteBook)
	e.POST("/api/v1/books/:id/issue", h.IssueBook)
	e.POST("/api/v1/books/:id/return", h.ReturnBook)
	e.GET("/api/v1/summary", h.Summary)
	return e, svc
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		req := model.CreateBookRequest{Title: "1984", Author: "George Orwell", Category: "Fiction", Rating: 4.5, TotalCopies: 2}
		book := model.Book{ID: 1, Title: "1984", Author: "George Orwell", Category: "Fiction", Rating: 4.5, TotalCopies: 2, AvailableCopies: 2, Status: model.StatusAvailable}
		svc.EXPECT().CreateBook(context.Background(), req).Return(book, nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/books",
			`{"title":"1984","author":"George Orwell","category":"Fiction","rating":4.5,"totalCopies":2}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.JSONEq(t, toJSON(t, book), rec.Body.String())
	})

	t.Run("missing title fails validation", func(t *testing.T) {
		t.Parallel()
		e, _ := setup(t)

		rec := doJSON(e, http.MethodPost, "/api/v1/books", `{"author":"George Orwell"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Title")
	})

	t.Run("rating out of range fails validation", func(t *testing.T) {
		t.Parallel()
		e, _ := setup(t)

		rec := doJSON(e, http.MethodPost, "/api/v1/books", `{"title":"x","author":"y","rating":7}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Rating")
	})

	t.Run("duplicate isbn maps to 400", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().
			CreateBook(context.Background(), gomock.Any()).
			Return(model.Book{}, errors.Wrap(errs.ErrValidation, "isbn already exists"))

		rec := doJSON(e, http.MethodPost, "/api/v1/books", `{"title":"x","author":"y"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "isbn already exists")
	})
}

func TestHandler_GetBooks(t *testing.T) {
	t.Parallel()

	t.Run("passes filters and sort through", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		filter := model.BooksFilter{Search: "orwell", Category: "Fiction", Language: "English", Status: model.StatusAvailable}
		books := []model.Book{{ID: 1, Title: "1984", Author: "George Orwell", Status: model.StatusAvailable}}
		svc.EXPECT().ListBooks(context.Background(), filter, "author").Return(books, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/books?q=orwell&category=Fiction&language=English&status=Available&sort=author", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, toJSON(t, books), rec.Body.String())
	})

	t.Run("unknown sort column maps to 400", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().
			ListBooks(context.Background(), model.BooksFilter{}, "borrower_name").
			Return(nil, errors.Wrap(errs.ErrValidation, "unsupported sort column"))

		rec := doJSON(e, http.MethodGet, "/api/v1/books?sort=borrower_name", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().
			ListBooks(context.Background(), model.BooksFilter{}, "").
			Return(nil, errors.Wrap(errs.ErrStore, "select books"))

		rec := doJSON(e, http.MethodGet, "/api/v1/books", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		book := model.Book{ID: 7, Title: "Dune", Author: "Frank Herbert", Status: model.StatusAvailable}
		svc.EXPECT().GetBook(context.Background(), 7).Return(book, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/books/7", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, toJSON(t, book), rec.Body.String())
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().GetBook(context.Background(), 99).Return(model.Book{}, errs.ErrNotFound)

		rec := doJSON(e, http.MethodGet, "/api/v1/books/99", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "book not found")
	})

	t.Run("non numeric id maps to 400", func(t *testing.T) {
		t.Parallel()
		e, _ := setup(t)

		rec := doJSON(e, http.MethodGet, "/api/v1/books/abc", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "id is invalid")
	})
}

func TestHandler_IssueBook(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		req := model.IssueBookRequest{BorrowerName: "Alice", LoanDays: 14}
		borrower := "Alice"
		due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		book := model.Book{ID: 3, Title: "Dune", Author: "Frank Herbert", Status: model.StatusIssued, BorrowerName: &borrower, DueDate: &due}
		svc.EXPECT().Issue(context.Background(), 3, req).Return(book, nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/books/3/issue", `{"borrowerName":"Alice","loanDays":14}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, toJSON(t, book), rec.Body.String())
	})

	t.Run("missing borrower fails validation", func(t *testing.T) {
		t.Parallel()
		e, _ := setup(t)

		rec := doJSON(e, http.MethodPost, "/api/v1/books/3/issue", `{"loanDays":14}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "BorrowerName")
	})

	t.Run("already issued maps to 409", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().
			Issue(context.Background(), 3, model.IssueBookRequest{BorrowerName: "Bob"}).
			Return(model.Book{}, errors.Wrap(errs.ErrInvalidState, "book is already issued"))

		rec := doJSON(e, http.MethodPost, "/api/v1/books/3/issue", `{"borrowerName":"Bob"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "already issued")
	})

	t.Run("unknown book maps to 404", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().
			Issue(context.Background(), 42, model.IssueBookRequest{BorrowerName: "Bob"}).
			Return(model.Book{}, errs.ErrNotFound)

		rec := doJSON(e, http.MethodPost, "/api/v1/books/42/issue", `{"borrowerName":"Bob"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_ReturnBook(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		book := model.Book{ID: 3, Title: "Dune", Author: "Frank Herbert", Status: model.StatusAvailable}
		svc.EXPECT().Return(context.Background(), 3).Return(book, nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/books/3/return", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, toJSON(t, book), rec.Body.String())
	})

	t.Run("not issued maps to 409", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().
			Return(context.Background(), 3).
			Return(model.Book{}, errors.Wrap(errs.ErrInvalidState, "book is not issued"))

		rec := doJSON(e, http.MethodPost, "/api/v1/books/3/return", "")
		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandler_UpdateBook(t *testing.T) {
	t.Parallel()

	e, svc := setup(t)
	title := "Dune Messiah"
	req := model.UpdateBookRequest{Title: &title}
	book := model.Book{ID: 3, Title: "Dune Messiah", Author: "Frank Herbert", Status: model.StatusAvailable}
	svc.EXPECT().UpdateBook(context.Background(), 3, req).Return(book, nil)

	rec := doJSON(e, http.MethodPatch, "/api/v1/books/3", `{"title":"Dune Messiah"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, toJSON(t, book), rec.Body.String())
}

func TestHandler_DeleteBook(t *testing.T) {
	t.Parallel()

	t.Run("no content", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().DeleteBook(context.Background(), 3).Return(nil)

		rec := doJSON(e, http.MethodDelete, "/api/v1/books/3", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, rec.Body.String())
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		svc.EXPECT().DeleteBook(context.Background(), 99).Return(errs.ErrNotFound)

		rec := doJSON(e, http.MethodDelete, "/api/v1/books/99", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_GetIssuedBooks(t *testing.T) {
	t.Parallel()

	t.Run("asOf pins the fine date", func(t *testing.T) {
		t.Parallel()
		e, svc := setup(t)
		asOf := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
		due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		borrower := "Alice"
		issued := []model.IssuedBook{{
			Book:        model.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: model.StatusIssued, BorrowerName: &borrower, DueDate: &due},
			OverdueDays: 10,
			Fine:        100,
		}}
		svc.EXPECT().ListIssued(context.Background(), asOf).Return(issued, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/books/issued?asOf=2024-01-11", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, toJSON(t, issued), rec.Body.String())
	})

	t.Run("malformed asOf maps to 400", func(t *testing.T) {
		t.Parallel()
		e, _ := setup(t)

		rec := doJSON(e, http.MethodGet, "/api/v1/books/issued?asOf=11.01.2024", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "asOf is invalid")
	})
}

func TestHandler_Summary(t *testing.T) {
	t.Parallel()

	e, svc := setup(t)
	asOf := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	summary := model.Summary{
		Total:             3,
		IssuedCount:       1,
		AvailableCount:    2,
		OverdueCount:      1,
		TotalFines:        100,
		CategoryBreakdown: map[string]int{"Fiction": 2, "Science": 1},
	}
	svc.EXPECT().Summarize(context.Background(), asOf).Return(summary, nil)

	rec := doJSON(e, http.MethodGet, "/api/v1/summary?asOf=2024-01-11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, toJSON(t, summary), rec.Body.String())
}
