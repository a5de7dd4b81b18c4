package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/expense-importer/internal/database"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// Outcome is the final state written when a statement leaves processing.
type Outcome struct {
	Status         models.StatementStatus
	ProcessedCount *int
	ErrorMessage   string
	Issues         []models.LineIssue
	// From, when set, restricts the update to statements currently in that
	// status.
	From models.StatementStatus
}

// StatementRepository handles statement database operations. Status changes
// are conditional on the current status so a statement never moves backwards.
type StatementRepository struct {
	db database.PGXDB
}

// NewStatementRepository creates a new StatementRepository.
func NewStatementRepository(db database.PGXDB) *StatementRepository {
	return &StatementRepository{db: db}
}

const statementColumns = `id, file_name, source, status, total_count, processed_count,
	error_message, issues, uploaded_at, processed_at`

// Create inserts a pending statement and fills in UploadedAt.
func (r *StatementRepository) Create(ctx context.Context, stmt *models.Statement) error {
	stmt.Status = models.StatementStatusPending
	err := r.db.QueryRow(ctx, `
		INSERT INTO statements (id, file_name, source, status)
		VALUES ($1, $2, $3, $4)
		RETURNING uploaded_at
	`, stmt.ID, stmt.FileName, stmt.Source, stmt.Status).Scan(&stmt.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	return nil
}

// GetByID retrieves a statement by ID.
func (r *StatementRepository) GetByID(ctx context.Context, id string) (*models.Statement, error) {
	row := r.db.QueryRow(ctx, `SELECT `+statementColumns+` FROM statements WHERE id = $1`, id)
	stmt, err := scanStatement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("statement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	return stmt, nil
}

// ListRecent returns the most recently uploaded statements.
func (r *StatementRepository) ListRecent(ctx context.Context, limit int) ([]models.Statement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+statementColumns+` FROM statements
		ORDER BY uploaded_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	var statements []models.Statement
	for rows.Next() {
		stmt, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, *stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statements: %w", err)
	}
	return statements, nil
}

// MarkProcessing moves a pending statement to processing.
func (r *StatementRepository) MarkProcessing(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE statements SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.StatementStatusProcessing, models.StatementStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark statement processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, models.StatementStatusProcessing)
	}
	return nil
}

// SetTotal records how many transactions will be persisted and resets progress.
func (r *StatementRepository) SetTotal(ctx context.Context, id string, total int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE statements SET total_count = $2, processed_count = 0
		WHERE id = $1 AND status = $3
	`, id, total, models.StatementStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to set statement total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, models.StatementStatusProcessing)
	}
	return nil
}

// UpdateProgress records the number of transactions persisted so far.
func (r *StatementRepository) UpdateProgress(ctx context.Context, id string, processed int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE statements SET processed_count = $2 WHERE id = $1 AND status = $3
	`, id, processed, models.StatementStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update statement progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, models.StatementStatusProcessing)
	}
	return nil
}

// Finish writes a terminal outcome and stamps processed_at. Failed and
// cancelled may be reached from pending; every terminal status may be reached
// from processing.
func (r *StatementRepository) Finish(ctx context.Context, id string, o Outcome) error {
	from := allowedFrom(o.Status)
	if len(from) == 0 {
		return fmt.Errorf("%w: %s is not a terminal status", ErrInvalidTransition, o.Status)
	}
	if o.From != "" {
		if !slices.Contains(from, string(o.From)) {
			return fmt.Errorf("%w: %s cannot become %s", ErrInvalidTransition, o.From, o.Status)
		}
		from = []string{string(o.From)}
	}

	issues := o.Issues
	if issues == nil {
		issues = []models.LineIssue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to encode statement issues: %w", err)
	}

	var message *string
	if o.ErrorMessage != "" {
		message = &o.ErrorMessage
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE statements
		SET status = $2,
		    processed_count = COALESCE($3, processed_count),
		    error_message = $4,
		    issues = $5,
		    processed_at = NOW()
		WHERE id = $1 AND status = ANY($6)
	`, id, o.Status, o.ProcessedCount, message, issuesJSON, from)
	if err != nil {
		return fmt.Errorf("failed to finish statement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, o.Status)
	}
	return nil
}

// FailInterrupted fails statements left pending or processing by a previous
// run. It returns the number of statements changed.
func (r *StatementRepository) FailInterrupted(ctx context.Context, message string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE statements
		SET status = $1, error_message = $2, processed_at = NOW()
		WHERE status IN ($3, $4)
	`, models.StatementStatusFailed, message, models.StatementStatusPending, models.StatementStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to fail interrupted statements: %w", err)
	}
	return tag.RowsAffected(), nil
}

func allowedFrom(to models.StatementStatus) []string {
	switch to {
	case models.StatementStatusFailed, models.StatementStatusCancelled:
		return []string{string(models.StatementStatusPending), string(models.StatementStatusProcessing)}
	case models.StatementStatusCompleted, models.StatementStatusCompletedWithErrors:
		return []string{string(models.StatementStatusProcessing)}
	}
	return nil
}

// transitionError explains why a conditional update touched no rows.
func (r *StatementRepository) transitionError(ctx context.Context, id string, to models.StatementStatus) error {
	var current models.StatementStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM statements WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("statement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read statement status: %w", err)
	}
	return fmt.Errorf("%w: statement %s is %s, cannot become %s", ErrInvalidTransition, id, current, to)
}

func scanStatement(row pgx.Row) (*models.Statement, error) {
	var (
		stmt   models.Statement
		issues []byte
	)
	if err := row.Scan(
		&stmt.ID, &stmt.FileName, &stmt.Source, &stmt.Status, &stmt.TotalCount, &stmt.ProcessedCount,
		&stmt.ErrorMessage, &issues, &stmt.UploadedAt, &stmt.ProcessedAt,
	); err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		if err := json.Unmarshal(issues, &stmt.Issues); err != nil {
			return nil, fmt.Errorf("failed to decode statement issues: %w", err)
		}
	}
	return &stmt, nil
}
