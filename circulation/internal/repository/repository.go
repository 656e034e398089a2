package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libracore/circulation-service/circulation/internal/errs"
	"github.com/libracore/circulation-service/circulation/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	ListBooks(ctx context.Context, filter model.BooksFilter, sortBy string) ([]model.Book, error)
	ListIssued(ctx context.Context) ([]model.Book, error)
	IssueBook(ctx context.Context, id int, borrower string, issueDate, dueDate time.Time) (model.Book, error)
	ReturnBook(ctx context.Context, id int) (model.Book, error)
	CountByStatus(ctx context.Context) (model.StatusCounts, error)
	CategoryBreakdown(ctx context.Context) (map[string]int, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const booksTableName = `books`

var bookColumns = []string{
	"id", "title", "author", "category", "isbn", "language", "publication_year",
	"rating", "total_copies", "available_copies", "status", "borrower_name",
	"issue_date", "due_date", "created_at",
}

// sortColumns is the closed whitelist of sortable columns. Sort keys
// arrive from the request and must never reach the query text unchecked.
var sortColumns = map[string]string{
	"title":            "title",
	"author":           "author",
	"category":         "category",
	"status":           "status",
	"rating":           "rating",
	"publication_year": "publication_year",
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func wrapStore(err error, msg string) error {
	return errors.Wrapf(errs.ErrStore, "%s: %v", msg, err)
}

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	values := map[string]interface{}{
		"title":  req.Title,
		"author": req.Author,
	}
	if req.Category != "" {
		values["category"] = req.Category
	}
	if req.ISBN != nil {
		values["isbn"] = *req.ISBN
	}
	if req.Language != "" {
		values["language"] = req.Language
	}
	if req.PublicationYear != nil {
		values["publication_year"] = *req.PublicationYear
	}
	if req.Rating > 0 {
		values["rating"] = req.Rating
	}
	if req.TotalCopies > 0 {
		values["total_copies"] = req.TotalCopies
		values["available_copies"] = req.TotalCopies
	}

	query, args, err := qb.Insert(booksTableName).
		SetMap(values).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Book{}, errors.Wrap(errs.ErrValidation, "isbn already exists")
		}
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, wrapStore(err, "create book")
	}
	return book, nil
}

func (r *repository) GetBook(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, wrapStore(err, "get book")
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	values := map[string]interface{}{}
	if req.Title != nil {
		values["title"] = *req.Title
	}
	if req.Author != nil {
		values["author"] = *req.Author
	}
	if req.Category != nil {
		values["category"] = *req.Category
	}
	if req.ISBN != nil {
		values["isbn"] = *req.ISBN
	}
	if req.Language != nil {
		values["language"] = *req.Language
	}
	if req.PublicationYear != nil {
		values["publication_year"] = *req.PublicationYear
	}
	if req.Rating != nil {
		values["rating"] = *req.Rating
	}
	if req.TotalCopies != nil {
		values["total_copies"] = *req.TotalCopies
	}
	if len(values) == 0 {
		return model.Book{}, errors.Wrap(errs.ErrValidation, "no fields to update")
	}

	query, args, err := qb.Update(booksTableName).
		SetMap(values).
		Where(sq.Eq{"id": id}).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Book{}, errors.Wrap(errs.ErrValidation, "isbn already exists")
		}
		return model.Book{}, wrapStore(err, "update book")
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	query, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapStore(err, "delete book")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStore(err, "delete book rows affected")
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// buildListQuery assembles the inventory search. Filter values only
// ever travel as bound parameters; the sort key is resolved through
// the whitelist before it may appear in the statement.
func buildListQuery(filter model.BooksFilter, sortBy string) (string, []interface{}, error) {
	orderCol := "title"
	if sortBy != "" {
		col, ok := sortColumns[sortBy]
		if !ok {
			return "", nil, errors.Wrapf(errs.ErrValidation, "unknown sort key %q", sortBy)
		}
		orderCol = col
	}

	q := qb.Select(bookColumns...).From(booksTableName)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
		})
	}
	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Language != "" {
		q = q.Where(sq.Eq{"language": filter.Language})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}

	return q.OrderBy(orderCol+" asc", "id asc").ToSql()
}

func (r *repository) ListBooks(ctx context.Context, filter model.BooksFilter, sortBy string) ([]model.Book, error) {
	query, args, err := buildListQuery(filter, sortBy)
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, wrapStore(err, "list books")
	}
	return books, nil
}

func (r *repository) ListIssued(ctx context.Context) ([]model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"status": string(model.StatusIssued)}).
		OrderBy("due_date asc", "id asc").
		ToSql()
	if err != nil {
		return nil, err
	}

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, wrapStore(err, "list issued")
	}
	return books, nil
}

// IssueBook moves an Available book to Issued inside one transaction.
// The row lock serializes concurrent issue attempts on the same book:
// exactly one caller wins, the rest observe ErrInvalidState.
func (r *repository) IssueBook(ctx context.Context, id int, borrower string, issueDate, dueDate time.Time) (model.Book, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Book{}, wrapStore(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	status, err := lockBookStatus(ctx, tx, id)
	if err != nil {
		return model.Book{}, err
	}
	if status != model.StatusAvailable {
		return model.Book{}, errors.Wrap(errs.ErrInvalidState, "book is already issued")
	}

	query, args, err := qb.Update(booksTableName).
		Set("status", string(model.StatusIssued)).
		Set("borrower_name", borrower).
		Set("issue_date", issueDate).
		Set("due_date", dueDate).
		Where(sq.Eq{"id": id}).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := tx.GetContext(ctx, &book, query, args...); err != nil {
		return model.Book{}, wrapStore(err, "issue book")
	}
	if err := tx.Commit(); err != nil {
		return model.Book{}, wrapStore(err, "commit issue")
	}
	return book, nil
}

// ReturnBook moves an Issued book back to Available, clearing the
// borrower and both dates atomically. No fine is recorded: fines are
// a read-time derivation, not state.
func (r *repository) ReturnBook(ctx context.Context, id int) (model.Book, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Book{}, wrapStore(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	status, err := lockBookStatus(ctx, tx, id)
	if err != nil {
		return model.Book{}, err
	}
	if status != model.StatusIssued {
		return model.Book{}, errors.Wrap(errs.ErrInvalidState, "book is not issued")
	}

	query, args, err := qb.Update(booksTableName).
		Set("status", string(model.StatusAvailable)).
		Set("borrower_name", nil).
		Set("issue_date", nil).
		Set("due_date", nil).
		Where(sq.Eq{"id": id}).
		Suffix("returning " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := tx.GetContext(ctx, &book, query, args...); err != nil {
		return model.Book{}, wrapStore(err, "return book")
	}
	if err := tx.Commit(); err != nil {
		return model.Book{}, wrapStore(err, "commit return")
	}
	return book, nil
}

func lockBookStatus(ctx context.Context, tx *sqlx.Tx, id int) (model.Status, error) {
	var status model.Status
	err := tx.GetContext(ctx, &status, `select status from books where id = $1 for update`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", wrapStore(err, "lock book")
	}
	return status, nil
}

func (r *repository) CountByStatus(ctx context.Context) (model.StatusCounts, error) {
	const q = `
	select count(*) as total,
	       count(*) filter (where status = 'Issued') as issued
	from books`

	var counts model.StatusCounts
	if err := r.db.GetContext(ctx, &counts, q); err != nil {
		return model.StatusCounts{}, wrapStore(err, "count by status")
	}
	return counts, nil
}

func (r *repository) CategoryBreakdown(ctx context.Context) (map[string]int, error) {
	query, args, err := qb.Select("category", "count(*) as cnt").
		From(booksTableName).
		GroupBy("category").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows := make([]struct {
		Category string `db:"category"`
		Cnt      int    `db:"cnt"`
	}, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapStore(err, "category breakdown")
	}

	breakdown := make(map[string]int, len(rows))
	for _, row := range rows {
		breakdown[row.Category] = row.Cnt
	}
	return breakdown, nil
}
