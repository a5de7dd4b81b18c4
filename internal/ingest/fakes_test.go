package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"gitlab.com/yelinaung/expense-importer/internal/models"
	"gitlab.com/yelinaung/expense-importer/internal/repository"
)

// memStatements mirrors the conditional updates of the SQL repository.
type memStatements struct {
	mu       sync.Mutex
	rows     map[string]*models.Statement
	progress []int
	finishes int
}

func newMemStatements() *memStatements {
	return &memStatements{rows: make(map[string]*models.Statement)}
}

func (m *memStatements) Create(_ context.Context, stmt *models.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stmt.Status = models.StatementStatusPending
	stmt.UploadedAt = time.Now()
	cp := *stmt
	m.rows[stmt.ID] = &cp
	return nil
}

func (m *memStatements) GetByID(_ context.Context, id string) (*models.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("statement %s: %w", id, repository.ErrNotFound)
	}
	cp := *row
	cp.Issues = slices.Clone(row.Issues)
	return &cp, nil
}

func (m *memStatements) ListRecent(_ context.Context, limit int) ([]models.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Statement, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b models.Statement) int { return b.UploadedAt.Compare(a.UploadedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStatements) transition(id string, to models.StatementStatus, from ...models.StatementStatus) (*models.Statement, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("statement %s: %w", id, repository.ErrNotFound)
	}
	if !slices.Contains(from, row.Status) {
		return nil, fmt.Errorf("%w: statement %s is %s, cannot become %s", repository.ErrInvalidTransition, id, row.Status, to)
	}
	return row, nil
}

func (m *memStatements) MarkProcessing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.transition(id, models.StatementStatusProcessing, models.StatementStatusPending)
	if err != nil {
		return err
	}
	row.Status = models.StatementStatusProcessing
	return nil
}

func (m *memStatements) SetTotal(_ context.Context, id string, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.transition(id, models.StatementStatusProcessing, models.StatementStatusProcessing)
	if err != nil {
		return err
	}
	zero := 0
	row.TotalCount = &total
	row.ProcessedCount = &zero
	return nil
}

func (m *memStatements) UpdateProgress(_ context.Context, id string, processed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.transition(id, models.StatementStatusProcessing, models.StatementStatusProcessing)
	if err != nil {
		return err
	}
	row.ProcessedCount = &processed
	m.progress = append(m.progress, processed)
	return nil
}

func (m *memStatements) Finish(_ context.Context, id string, o repository.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := []models.StatementStatus{models.StatementStatusProcessing}
	if o.Status == models.StatementStatusFailed || o.Status == models.StatementStatusCancelled {
		from = append(from, models.StatementStatusPending)
	}
	if o.From != "" {
		if !slices.Contains(from, o.From) {
			return repository.ErrInvalidTransition
		}
		from = []models.StatementStatus{o.From}
	}
	row, err := m.transition(id, o.Status, from...)
	if err != nil {
		return err
	}
	now := time.Now()
	row.Status = o.Status
	if o.ProcessedCount != nil {
		n := *o.ProcessedCount
		row.ProcessedCount = &n
	}
	row.ErrorMessage = nil
	if o.ErrorMessage != "" {
		msg := o.ErrorMessage
		row.ErrorMessage = &msg
	}
	row.Issues = slices.Clone(o.Issues)
	row.ProcessedAt = &now
	m.finishes++
	return nil
}

func (m *memStatements) get(id string) models.Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

type memExpenses struct {
	mu     sync.Mutex
	rows   []models.Expense
	failOn func(e *models.Expense) error
	// onCreate runs after a successful insert.
	onCreate func(n int)
}

func (m *memExpenses) Create(_ context.Context, e *models.Expense) error {
	m.mu.Lock()
	if m.failOn != nil {
		if err := m.failOn(e); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	e.ID = len(m.rows) + 1
	m.rows = append(m.rows, *e)
	n := len(m.rows)
	hook := m.onCreate
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (m *memExpenses) GetByStatementID(_ context.Context, id string) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Expense
	for _, e := range m.rows {
		if e.StatementID != nil && *e.StatementID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memExpenses) all() []models.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}

type memCategories struct {
	categories []models.Category
	err        error
}

func (m *memCategories) GetAll(context.Context) ([]models.Category, error) {
	return m.categories, m.err
}

type memPartners struct {
	partners []models.Partner
}

func (m *memPartners) GetAll(context.Context) ([]models.Partner, error) {
	return m.partners, nil
}

func (m *memPartners) GetByID(_ context.Context, id int) (*models.Partner, error) {
	for _, p := range m.partners {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("partner %d: %w", id, repository.ErrNotFound)
}

var errDiskFull = errors.New("disk full")

func testCategories() []models.Category {
	return []models.Category{
		{ID: 1, Name: "Groceries", Keywords: []string{"supermarket"}},
		{ID: 2, Name: "Food - Dining Out"},
		{ID: 3, Name: "Transportation"},
		{ID: 9, Name: "Other"},
	}
}

func testPartners() []models.Partner {
	return []models.Partner{{ID: 7, Name: "Household"}, {ID: 8, Name: "Alex"}}
}
