package model

import (
	"time"
)

type Status string

const (
	StatusAvailable Status = "Available"
	StatusIssued    Status = "Issued"
)

// Book is the central inventory entity. The circulation fields
// (Status, BorrowerName, IssueDate, DueDate) change only as a group:
// all three pointers are set while Issued and nil while Available.
type Book struct {
	ID              int        `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Author          string     `json:"author" db:"author"`
	Category        string     `json:"category" db:"category"`
	ISBN            *string    `json:"isbn,omitempty" db:"isbn"`
	Language        string     `json:"language" db:"language"`
	PublicationYear *int       `json:"publicationYear,omitempty" db:"publication_year"`
	Rating          float64    `json:"rating" db:"rating"`
	TotalCopies     int        `json:"totalCopies" db:"total_copies"`
	AvailableCopies int        `json:"availableCopies" db:"available_copies"`
	Status          Status     `json:"status" db:"status"`
	BorrowerName    *string    `json:"borrowerName,omitempty" db:"borrower_name"`
	IssueDate       *time.Time `json:"issueDate,omitempty" db:"issue_date"`
	DueDate         *time.Time `json:"dueDate,omitempty" db:"due_date"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// IssuedBook is a Book enriched with the overdue quantities derived
// at read time. Fines are never persisted.
type IssuedBook struct {
	Book
	OverdueDays int   `json:"overdueDays"`
	Fine        int64 `json:"fine"`
}

type Summary struct {
	Total             int            `json:"total"`
	IssuedCount       int            `json:"issuedCount"`
	AvailableCount    int            `json:"availableCount"`
	OverdueCount      int            `json:"overdueCount"`
	TotalFines        int64          `json:"totalFines"`
	CategoryBreakdown map[string]int `json:"categoryBreakdown"`
}

type StatusCounts struct {
	Total  int `db:"total"`
	Issued int `db:"issued"`
}

// BooksFilter narrows an inventory listing. An empty value means
// "no constraint", mirroring the browse form semantics; filters
// combine with AND.
type BooksFilter struct {
	Search   string
	Category string
	Language string
	Status   Status
}

type CreateBookRequest struct {
	Title           string  `json:"title" validate:"required"`
	Author          string  `json:"author" validate:"required"`
	Category        string  `json:"category"`
	ISBN            *string `json:"isbn,omitempty"`
	Language        string  `json:"language"`
	PublicationYear *int    `json:"publicationYear,omitempty"`
	Rating          float64 `json:"rating" validate:"gte=0,lte=5"`
	TotalCopies     int     `json:"totalCopies" validate:"gte=0"`
}

// UpdateBookRequest patches descriptive fields only. Circulation
// state is owned by issue/return and cannot be set here.
type UpdateBookRequest struct {
	Title           *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Author          *string  `json:"author,omitempty" validate:"omitempty,min=1"`
	Category        *string  `json:"category,omitempty"`
	ISBN            *string  `json:"isbn,omitempty"`
	Language        *string  `json:"language,omitempty"`
	PublicationYear *int     `json:"publicationYear,omitempty"`
	Rating          *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	TotalCopies     *int     `json:"totalCopies,omitempty" validate:"omitempty,gte=0"`
}

type IssueBookRequest struct {
	BorrowerName string `json:"borrowerName" validate:"required"`
	// LoanDays of 0 falls back to the configured default loan period.
	LoanDays int `json:"loanDays" validate:"omitempty,gt=0"`
}
