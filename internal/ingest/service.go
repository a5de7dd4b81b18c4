package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"gitlab.com/yelinaung/expense-importer/internal/models"
	"gitlab.com/yelinaung/expense-importer/internal/repository"
	"gitlab.com/yelinaung/expense-importer/internal/telemetry"
)

const (
	// DefaultMaxUploadBytes is used when ServiceConfig.MaxUploadBytes is unset.
	DefaultMaxUploadBytes = 10 << 20
	// DefaultRecentLimit bounds Recent when the caller passes no limit.
	DefaultRecentLimit = 20
	maxRecentLimit     = 100

	maxSourceLength   = 100
	maxFileNameLength = 255
)

// Submitter accepts jobs for background execution.
type Submitter interface {
	Submit(job Job) error
	Cancel(id string) bool
}

// UploadRequest is one statement upload.
type UploadRequest struct {
	FileName  string
	Source    string
	PartnerID *int
	Content   []byte
}

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Statements     StatementStore
	Expenses       ExpenseStore
	Partners       PartnerStore
	Queue          Submitter
	Metrics        *telemetry.Metrics
	MaxUploadBytes int64
	// NewID defaults to random UUIDs.
	NewID func() string
}

// Service is the boundary used by the HTTP API and the Telegram bot.
type Service struct {
	statements     StatementStore
	expenses       ExpenseStore
	partners       PartnerStore
	queue          Submitter
	metrics        *telemetry.Metrics
	maxUploadBytes int64
	newID          func() string
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	limit := cfg.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &Service{
		statements:     cfg.Statements,
		expenses:       cfg.Expenses,
		partners:       cfg.Partners,
		queue:          cfg.Queue,
		metrics:        cfg.Metrics,
		maxUploadBytes: limit,
		newID:          newID,
	}
}

// MaxUploadBytes returns the largest accepted upload.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Upload records a pending statement and queues its ingestion. The returned
// statement is the record as created; ingestion continues in the background.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Statement, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	stmt := &models.Statement{
		ID:       s.newID(),
		FileName: cleanFileName(req.FileName),
		Source:   strings.TrimSpace(req.Source),
	}
	if err := s.statements.Create(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	log := logger.Log.With().Str("statement_id", stmt.ID).Logger()
	job := Job{
		StatementID: stmt.ID,
		Source:      stmt.Source,
		Text:        string(req.Content),
		PartnerID:   req.PartnerID,
	}
	if err := s.queue.Submit(job); err != nil {
		log.Warn().Err(err).Msg("Statement could not be queued")
		s.metrics.QueueRejected(ctx)

		outcome := repository.Outcome{
			Status:       models.StatementStatusFailed,
			ErrorMessage: err.Error(),
		}
		if ferr := s.statements.Finish(context.WithoutCancel(ctx), stmt.ID, outcome); ferr != nil {
			log.Error().Err(ferr).Msg("Failed to mark rejected statement as failed")
		}
		return nil, err
	}

	log.Info().
		Str("source", stmt.Source).
		Int("bytes", len(req.Content)).
		Msg("Statement queued for ingestion")
	return stmt, nil
}

func (s *Service) validate(ctx context.Context, req UploadRequest) error {
	if len(req.Content) == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	if int64(len(req.Content)) > s.maxUploadBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrTooLarge, len(req.Content), s.maxUploadBytes)
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidUpload)
	}
	if utf8.RuneCountInString(source) > maxSourceLength {
		return fmt.Errorf("%w: source is longer than %d characters", ErrInvalidUpload, maxSourceLength)
	}
	if !utf8.Valid(req.Content) {
		return fmt.Errorf("%w: file is not valid UTF-8 text", ErrInvalidUpload)
	}
	if req.PartnerID != nil {
		_, err := s.partners.GetByID(ctx, *req.PartnerID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: partner %d does not exist", ErrInvalidUpload, *req.PartnerID)
		}
		if err != nil {
			return fmt.Errorf("failed to check partner: %w", err)
		}
	}
	return nil
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return "statement.csv"
	}
	if utf8.RuneCountInString(name) > maxFileNameLength {
		name = string([]rune(name)[:maxFileNameLength])
	}
	return name
}

// Status returns the current statement record.
func (s *Service) Status(ctx context.Context, id string) (*models.Statement, error) {
	stmt, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// Recent returns the latest statements, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Statement, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)
	return s.statements.ListRecent(ctx, limit)
}

// Expenses returns the expenses created from a statement.
func (s *Service) Expenses(ctx context.Context, id string) ([]models.Expense, error) {
	if _, err := s.statements.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.expenses.GetByStatementID(ctx, id)
}

// Cancel stops a pending or running ingestion. A pending statement is
// cancelled at once; a running one reaches cancelled when its worker notices.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Statement, error) {
	stmt, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stmt.Status.IsTerminal() {
		return stmt, fmt.Errorf("%w: statement is %s", ErrNotCancellable, stmt.Status)
	}

	queued := s.queue.Cancel(id)
	outcome := repository.Outcome{
		Status:       models.StatementStatusCancelled,
		ErrorMessage: cancelledMessage,
	}
	if queued {
		// Once a worker has moved the statement to processing, it records
		// the outcome itself.
		outcome.From = models.StatementStatusPending
	}
	err = s.statements.Finish(ctx, id, outcome)
	if err != nil && !errors.Is(err, repository.ErrInvalidTransition) {
		return nil, fmt.Errorf("failed to cancel statement: %w", err)
	}

	logger.Log.Info().Str("statement_id", id).Bool("queued", queued).Msg("Statement cancellation requested")

	current, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() && current.Status != models.StatementStatusCancelled {
		return current, fmt.Errorf("%w: statement is %s", ErrNotCancellable, current.Status)
	}
	return current, nil
}
