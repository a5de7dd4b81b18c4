package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/expense-importer/internal/database"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create adds a new expense. Imported expenses start pending verification.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.VerificationStatus == "" {
		expense.VerificationStatus = models.VerificationPending
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (amount, description, category_id, partner_id, date, statement_id,
		                      verification_status, original_amount, confidence, classified_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, expense.Amount, expense.Description, expense.CategoryID, expense.PartnerID, expense.Date,
		expense.StatementID, expense.VerificationStatus, expense.OriginalAmount, expense.Confidence,
		expense.ClassifiedBy,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByStatementID lists the expenses created from one statement, in the
// order they were written.
func (r *ExpenseRepository) GetByStatementID(ctx context.Context, statementID string) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, amount, description, category_id, partner_id, date, statement_id,
		       verification_status, original_amount, confidence, classified_by, created_at, updated_at
		FROM expenses
		WHERE statement_id = $1
		ORDER BY id
	`, statementID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		if err := rows.Scan(
			&exp.ID, &exp.Amount, &exp.Description, &exp.CategoryID, &exp.PartnerID, &exp.Date, &exp.StatementID,
			&exp.VerificationStatus, &exp.OriginalAmount, &exp.Confidence, &exp.ClassifiedBy,
			&exp.CreatedAt, &exp.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}
