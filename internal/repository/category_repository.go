// Package repository provides database access for domain entities.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/expense-importer/internal/database"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// CategoryRepository handles category database operations.
type CategoryRepository struct {
	db database.PGXDB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db database.PGXDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll retrieves all categories in creation order.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, emoji, keywords, created_at FROM categories ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Emoji, &cat.Keywords, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT id, name, emoji, keywords, created_at FROM categories WHERE id = $1
	`, id).Scan(&cat.ID, &cat.Name, &cat.Emoji, &cat.Keywords, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

// Create adds a new category.
func (r *CategoryRepository) Create(ctx context.Context, name, emoji string, keywords []string) (*models.Category, error) {
	if keywords == nil {
		keywords = []string{}
	}
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (name, emoji, keywords) VALUES ($1, $2, $3)
		RETURNING id, name, emoji, keywords, created_at
	`, name, emoji, keywords).Scan(&cat.ID, &cat.Name, &cat.Emoji, &cat.Keywords, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &cat, nil
}

// SetKeywords replaces the fallback keywords of a category.
func (r *CategoryRepository) SetKeywords(ctx context.Context, id int, keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}
	tag, err := r.db.Exec(ctx, `UPDATE categories SET keywords = $2 WHERE id = $1`, id, keywords)
	if err != nil {
		return fmt.Errorf("failed to update category keywords: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}
