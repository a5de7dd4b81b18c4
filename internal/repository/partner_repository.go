package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/expense-importer/internal/database"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// PartnerRepository handles partner database operations.
type PartnerRepository struct {
	db database.PGXDB
}

// NewPartnerRepository creates a new PartnerRepository.
func NewPartnerRepository(db database.PGXDB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// GetAll retrieves all partners in creation order.
func (r *PartnerRepository) GetAll(ctx context.Context) ([]models.Partner, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM partners ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	var partners []models.Partner
	for rows.Next() {
		var p models.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partners: %w", err)
	}
	return partners, nil
}

// GetByID retrieves a partner by ID.
func (r *PartnerRepository) GetByID(ctx context.Context, id int) (*models.Partner, error) {
	var p models.Partner
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at FROM partners WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("partner %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return &p, nil
}

// Create adds a new partner.
func (r *PartnerRepository) Create(ctx context.Context, name string) (*models.Partner, error) {
	var p models.Partner
	err := r.db.QueryRow(ctx, `
		INSERT INTO partners (name) VALUES ($1) RETURNING id, name, created_at
	`, name).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	return &p, nil
}
