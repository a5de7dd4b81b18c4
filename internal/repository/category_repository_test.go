package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/expense-importer/internal/database"
)

func TestCategoryRepository(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewCategoryRepository(tx)

	t.Run("seeded categories come back in creation order", func(t *testing.T) {
		cats, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(cats), len(database.DefaultCategories))
		require.Equal(t, database.DefaultCategories[0].Name, cats[0].Name)
		require.NotNil(t, cats[0].Keywords)
	})

	t.Run("creates with keywords and reads back", func(t *testing.T) {
		cat, err := repo.Create(ctx, "Pets", "🐾", []string{"vets4pets", "pet shop"})
		require.NoError(t, err)
		require.NotZero(t, cat.ID)

		fetched, err := repo.GetByID(ctx, cat.ID)
		require.NoError(t, err)
		require.Equal(t, "Pets", fetched.Name)
		require.Equal(t, "🐾", fetched.Emoji)
		require.Equal(t, []string{"vets4pets", "pet shop"}, fetched.Keywords)
	})

	t.Run("replaces keywords", func(t *testing.T) {
		cat, err := repo.Create(ctx, "Garden", "🌱", nil)
		require.NoError(t, err)
		require.Empty(t, cat.Keywords)

		require.NoError(t, repo.SetKeywords(ctx, cat.ID, []string{"homebase"}))
		fetched, err := repo.GetByID(ctx, cat.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"homebase"}, fetched.Keywords)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, -1)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, repo.SetKeywords(ctx, -1, nil), ErrNotFound)
	})
}

func TestPartnerRepository(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewPartnerRepository(tx)

	partners, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, partners)
	require.Equal(t, database.DefaultPartner, partners[0].Name)

	created, err := repo.Create(ctx, "Alex")
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Alex", fetched.Name)

	_, err = repo.GetByID(ctx, -1)
	require.ErrorIs(t, err, ErrNotFound)
}
