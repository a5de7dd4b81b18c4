package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			emoji TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE categories ADD COLUMN IF NOT EXISTS keywords TEXT[] NOT NULL DEFAULT '{}'`,

		`CREATE TABLE IF NOT EXISTS partners (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS statements (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			total_count INTEGER,
			processed_count INTEGER,
			error_message TEXT,
			issues JSONB NOT NULL DEFAULT '[]'::jsonb,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ,
			CONSTRAINT statements_status_check CHECK (status IN
				('pending', 'processing', 'completed', 'completed_with_errors', 'failed', 'cancelled')),
			CONSTRAINT statements_progress_check CHECK (
				processed_count IS NULL OR total_count IS NULL OR processed_count <= total_count)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_status ON statements(status)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			amount DECIMAL(12, 2) NOT NULL,
			description TEXT NOT NULL,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			partner_id INTEGER NOT NULL REFERENCES partners(id),
			date DATE NOT NULL,
			statement_id TEXT,
			verification_status TEXT NOT NULL DEFAULT 'pending',
			original_amount TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE expenses ADD COLUMN IF NOT EXISTS confidence DOUBLE PRECISION NOT NULL DEFAULT 0`,
		`ALTER TABLE expenses ADD COLUMN IF NOT EXISTS classified_by TEXT NOT NULL DEFAULT ''`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_statement_id ON expenses(statement_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category_id ON expenses(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_verification_status ON expenses(verification_status)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// DefaultCategories are seeded on startup, in display order.
var DefaultCategories = []struct {
	Name  string
	Emoji string
}{
	{"Groceries", "🛒"},
	{"Eating Out", "🍽️"},
	{"Transport", "🚌"},
	{"Entertainment", "🎬"},
	{"Health", "💊"},
	{"Utilities", "💡"},
	{"Housing", "🏠"},
	{"Shopping", "🛍️"},
	{"Other", "📦"},
}

// DefaultPartner is the partner expenses are attributed to when none is given.
const DefaultPartner = "Household"

// SeedCategories inserts the default categories.
func SeedCategories(ctx context.Context, db PGXDB) error {
	for _, cat := range DefaultCategories {
		_, err := db.Exec(ctx,
			`INSERT INTO categories (name, emoji) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			cat.Name, cat.Emoji,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
		}
	}

	return nil
}

// SeedPartners inserts the default partner.
func SeedPartners(ctx context.Context, db PGXDB) error {
	_, err := db.Exec(ctx,
		`INSERT INTO partners (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		DefaultPartner,
	)
	if err != nil {
		return fmt.Errorf("failed to seed partner %q: %w", DefaultPartner, err)
	}
	return nil
}
