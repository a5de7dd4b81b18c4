// Package models defines the domain entities for statement ingestion.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// DefaultCategoryLabel is the category that receives unclassifiable transactions.
const DefaultCategoryLabel = "Other"

// StatementStatus is the ingestion lifecycle state of a statement.
type StatementStatus string

// Statement statuses. A statement never moves back to an earlier status.
const (
	StatementStatusPending             StatementStatus = "pending"
	StatementStatusProcessing          StatementStatus = "processing"
	StatementStatusCompleted           StatementStatus = "completed"
	StatementStatusCompletedWithErrors StatementStatus = "completed_with_errors"
	StatementStatusFailed              StatementStatus = "failed"
	StatementStatusCancelled           StatementStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s StatementStatus) IsTerminal() bool {
	switch s {
	case StatementStatusCompleted,
		StatementStatusCompletedWithErrors,
		StatementStatusFailed,
		StatementStatusCancelled:
		return true
	default:
		return false
	}
}

// Verification states of an expense created by ingestion.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Classification methods recorded on parsed transactions and expenses.
const (
	ClassifiedByAI      = "ai"
	ClassifiedByKeyword = "keyword"
	ClassifiedByDefault = "default"
)

// IssueKind tells how a line issue affected ingestion.
type IssueKind string

// Line issue kinds.
const (
	// IssueSkipped marks a line that was dropped on purpose (zero amount, empty description).
	IssueSkipped IssueKind = "skipped"
	// IssueWarning marks a line that was kept with a defaulted value.
	IssueWarning IssueKind = "warning"
	// IssueFailed marks a line that could not be parsed or persisted.
	IssueFailed IssueKind = "failed"
)

// LineIssue describes a problem with one statement line.
type LineIssue struct {
	Line   int       `json:"line"`
	Kind   IssueKind `json:"kind"`
	Reason string    `json:"reason"`
}

// Category represents an expense category.
type Category struct {
	ID        int
	Name      string
	Emoji     string
	Keywords  []string
	CreatedAt time.Time
}

// Partner represents the owner or payer of an expense.
type Partner struct {
	ID        int
	Name      string
	CreatedAt time.Time
}

// Statement is one uploaded export and its ingestion lifecycle record.
type Statement struct {
	ID             string          `json:"id"`
	FileName       string          `json:"file_name"`
	Source         string          `json:"source"`
	Status         StatementStatus `json:"status"`
	TotalCount     *int            `json:"total_count"`
	ProcessedCount *int            `json:"processed_count"`
	ErrorMessage   *string         `json:"error_message"`
	Issues         []LineIssue     `json:"issues"`
	UploadedAt     time.Time       `json:"uploaded_at"`
	ProcessedAt    *time.Time      `json:"processed_at"`
}

// ParsedTransaction is a normalized statement line that has not been persisted yet.
type ParsedTransaction struct {
	Line           int
	Date           time.Time
	Amount         decimal.Decimal
	Description    string
	CategoryID     int
	Confidence     float64
	ClassifiedBy   string
	OriginalAmount string
}

// Expense represents a single persisted expense entry.
type Expense struct {
	ID                 int
	Amount             decimal.Decimal
	Description        string
	CategoryID         int
	PartnerID          int
	Date               time.Time
	StatementID        *string
	VerificationStatus string
	OriginalAmount     string
	Confidence         float64
	ClassifiedBy       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
