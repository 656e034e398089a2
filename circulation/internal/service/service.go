package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libracore/circulation-service/circulation/internal/errs"
	"github.com/libracore/circulation-service/circulation/internal/fine"
	"github.com/libracore/circulation-service/circulation/internal/model"
	"github.com/libracore/circulation-service/circulation/internal/repository"
	"github.com/libracore/circulation-service/pkg/kafka"
	"github.com/libracore/circulation-service/pkg/middleware"
)

// Publisher emits circulation events for the stats collaborator.
// Publishing is best-effort: a failed publish never fails the mutation.
type Publisher interface {
	Publish(event kafka.EventCirculation) error
}

type Config struct {
	FineRatePerDay  int64
	DefaultLoanDays int
}

type Service struct {
	log       *zap.Logger
	repo      repository.Repository
	publisher Publisher
	cfg       Config
	now       func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock, used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo repository.Repository, publisher Publisher, cfg Config, log *zap.Logger, opts ...Option) *Service {
	if cfg.FineRatePerDay <= 0 {
		cfg.FineRatePerDay = fine.DefaultRatePerDay
	}
	if cfg.DefaultLoanDays <= 0 {
		cfg.DefaultLoanDays = 7
	}
	s := &Service{
		log:       log,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		return model.Book{}, errors.Wrap(errs.ErrValidation, "title and author are required")
	}
	book, err := s.repo.CreateBook(ctx, req)
	if err != nil {
		return model.Book{}, err
	}
	s.publish(ctx, kafka.ActionCreate, book.ID, "")
	return book, nil
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return model.Book{}, errors.Wrap(errs.ErrValidation, "title must not be blank")
	}
	if req.Author != nil && strings.TrimSpace(*req.Author) == "" {
		return model.Book{}, errors.Wrap(errs.ErrValidation, "author must not be blank")
	}
	return s.repo.UpdateBook(ctx, id, req)
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, kafka.ActionDelete, id, "")
	return nil
}

// Issue transitions an Available book to Issued, stamping the issue
// date with the service clock and the due date loanDays later.
func (s *Service) Issue(ctx context.Context, id int, req model.IssueBookRequest) (model.Book, error) {
	borrower := strings.TrimSpace(req.BorrowerName)
	if borrower == "" {
		return model.Book{}, errors.Wrap(errs.ErrValidation, "borrowerName is required")
	}
	loanDays := req.LoanDays
	if loanDays == 0 {
		loanDays = s.cfg.DefaultLoanDays
	}
	if loanDays <= 0 {
		return model.Book{}, errors.Wrap(errs.ErrValidation, "loanDays must be positive")
	}

	now := s.now()
	book, err := s.repo.IssueBook(ctx, id, borrower, now, now.AddDate(0, 0, loanDays))
	if err != nil {
		return model.Book{}, err
	}
	s.publish(ctx, kafka.ActionIssue, book.ID, borrower)
	return book, nil
}

// Return transitions an Issued book back to Available. Any fine owed
// is left to read-time computation and is not recorded here.
func (s *Service) Return(ctx context.Context, id int) (model.Book, error) {
	book, err := s.repo.ReturnBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	s.publish(ctx, kafka.ActionReturn, book.ID, "")
	return book, nil
}

func (s *Service) ListIssued(ctx context.Context, asOf time.Time) ([]model.IssuedBook, error) {
	books, err := s.repo.ListIssued(ctx)
	if err != nil {
		return nil, err
	}

	issued := make([]model.IssuedBook, 0, len(books))
	for _, b := range books {
		ib := model.IssuedBook{Book: b}
		if b.DueDate != nil {
			ib.OverdueDays, ib.Fine = fine.Calc(*b.DueDate, asOf, s.cfg.FineRatePerDay)
		}
		issued = append(issued, ib)
	}
	return issued, nil
}

func (s *Service) ListBooks(ctx context.Context, filter model.BooksFilter, sortBy string) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, filter, sortBy)
}

func (s *Service) Summarize(ctx context.Context, asOf time.Time) (model.Summary, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	issued, err := s.repo.ListIssued(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	breakdown, err := s.repo.CategoryBreakdown(ctx)
	if err != nil {
		return model.Summary{}, err
	}

	var (
		overdueCount int
		totalFines   int64
	)
	for _, b := range issued {
		if b.DueDate == nil {
			continue
		}
		days, amount := fine.Calc(*b.DueDate, asOf, s.cfg.FineRatePerDay)
		if days > 0 {
			overdueCount++
			totalFines += amount
		}
	}

	return model.Summary{
		Total:             counts.Total,
		IssuedCount:       counts.Issued,
		AvailableCount:    counts.Total - counts.Issued,
		OverdueCount:      overdueCount,
		TotalFines:        totalFines,
		CategoryBreakdown: breakdown,
	}, nil
}

func (s *Service) publish(ctx context.Context, action kafka.Action, bookID int, fallbackUser string) {
	if s.publisher == nil {
		return
	}
	username := middleware.UserNameFromContext(ctx)
	if username == "" {
		username = fallbackUser
	}
	event := kafka.EventCirculation{
		EventUID:  uuid.NewString(),
		BookID:    bookID,
		Action:    action,
		UserName:  username,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.Publish(event); err != nil {
		s.log.Warn("publish circulation event",
			zap.String("action", string(action)),
			zap.Int("bookId", bookID),
			zap.Error(err))
	}
}
