// Package ingest runs statement imports in the background and tracks their
// progress on the statement record.
package ingest

import (
	"context"
	"errors"

	"gitlab.com/yelinaung/expense-importer/internal/models"
	"gitlab.com/yelinaung/expense-importer/internal/repository"
	"gitlab.com/yelinaung/expense-importer/internal/statement"
)

var (
	// ErrInvalidUpload is returned for uploads that fail validation.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrTooLarge is returned for uploads above the configured size limit.
	ErrTooLarge = errors.New("upload too large")
	// ErrQueueFull is returned when no more jobs can be queued.
	ErrQueueFull = errors.New("ingestion queue is full")
	// ErrQueueClosed is returned after the queue has been stopped.
	ErrQueueClosed = errors.New("ingestion queue is closed")
	// ErrNotCancellable is returned when cancelling a finished statement.
	ErrNotCancellable = errors.New("statement already finished")
	// ErrNotFound is returned for unknown statements.
	ErrNotFound = repository.ErrNotFound
)

// Job is one statement import.
type Job struct {
	StatementID string
	Source      string
	Text        string
	PartnerID   *int
}

// StatementStore persists statement records.
type StatementStore interface {
	Create(ctx context.Context, stmt *models.Statement) error
	GetByID(ctx context.Context, id string) (*models.Statement, error)
	ListRecent(ctx context.Context, limit int) ([]models.Statement, error)
	MarkProcessing(ctx context.Context, id string) error
	SetTotal(ctx context.Context, id string, total int) error
	UpdateProgress(ctx context.Context, id string, processed int) error
	Finish(ctx context.Context, id string, o repository.Outcome) error
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByStatementID(ctx context.Context, statementID string) ([]models.Expense, error)
}

// CategoryStore lists the category directory.
type CategoryStore interface {
	GetAll(ctx context.Context) ([]models.Category, error)
}

// PartnerStore looks up partners.
type PartnerStore interface {
	GetAll(ctx context.Context) ([]models.Partner, error)
	GetByID(ctx context.Context, id int) (*models.Partner, error)
}

// Parser turns statement text into transactions.
type Parser interface {
	Parse(ctx context.Context, text string, profile statement.Profile, categories []models.Category) (*statement.ParseResult, error)
}

var (
	_ StatementStore = (*repository.StatementRepository)(nil)
	_ ExpenseStore   = (*repository.ExpenseRepository)(nil)
	_ CategoryStore  = (*repository.CategoryRepository)(nil)
	_ PartnerStore   = (*repository.PartnerRepository)(nil)
	_ Parser         = (*statement.Parser)(nil)
)
