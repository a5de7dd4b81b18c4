package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/expense-importer/internal/database"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

func newStatement(t *testing.T, repo *StatementRepository) *models.Statement {
	t.Helper()
	stmt := &models.Statement{ID: uuid.NewString(), FileName: "june.csv", Source: "revolut"}
	require.NoError(t, repo.Create(context.Background(), stmt))
	return stmt
}

func intPtr(v int) *int { return &v }

func TestStatementRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewStatementRepository(tx)

	stmt := newStatement(t, repo)
	require.False(t, stmt.UploadedAt.IsZero())

	fetched, err := repo.GetByID(ctx, stmt.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatementStatusPending, fetched.Status)
	require.Nil(t, fetched.TotalCount)
	require.Nil(t, fetched.ProcessedCount)
	require.Empty(t, fetched.Issues)

	require.NoError(t, repo.MarkProcessing(ctx, stmt.ID))
	require.NoError(t, repo.SetTotal(ctx, stmt.ID, 3))
	require.NoError(t, repo.UpdateProgress(ctx, stmt.ID, 2))

	fetched, err = repo.GetByID(ctx, stmt.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatementStatusProcessing, fetched.Status)
	require.Equal(t, 3, *fetched.TotalCount)
	require.Equal(t, 2, *fetched.ProcessedCount)

	issues := []models.LineIssue{{Line: 4, Kind: models.IssueFailed, Reason: "insert failed"}}
	require.NoError(t, repo.Finish(ctx, stmt.ID, Outcome{
		Status:         models.StatementStatusCompletedWithErrors,
		ProcessedCount: intPtr(2),
		ErrorMessage:   "1 errors occurred",
		Issues:         issues,
	}))

	fetched, err = repo.GetByID(ctx, stmt.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatementStatusCompletedWithErrors, fetched.Status)
	require.Equal(t, "1 errors occurred", *fetched.ErrorMessage)
	require.Equal(t, issues, fetched.Issues)
	require.NotNil(t, fetched.ProcessedAt)
}

func TestStatementRepository_Transitions(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewStatementRepository(tx)

	t.Run("pending cannot complete directly", func(t *testing.T) {
		stmt := newStatement(t, repo)
		err := repo.Finish(ctx, stmt.ID, Outcome{Status: models.StatementStatusCompleted})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("pending can be cancelled", func(t *testing.T) {
		stmt := newStatement(t, repo)
		require.NoError(t, repo.Finish(ctx, stmt.ID, Outcome{
			Status:       models.StatementStatusCancelled,
			ErrorMessage: "ingestion cancelled",
		}))

		require.ErrorIs(t, repo.MarkProcessing(ctx, stmt.ID), ErrInvalidTransition)
	})

	t.Run("terminal status never regresses", func(t *testing.T) {
		stmt := newStatement(t, repo)
		require.NoError(t, repo.MarkProcessing(ctx, stmt.ID))
		require.NoError(t, repo.Finish(ctx, stmt.ID, Outcome{Status: models.StatementStatusFailed, ErrorMessage: "boom"}))

		require.ErrorIs(t, repo.UpdateProgress(ctx, stmt.ID, 1), ErrInvalidTransition)
		require.ErrorIs(t, repo.Finish(ctx, stmt.ID, Outcome{Status: models.StatementStatusCompleted}), ErrInvalidTransition)
		require.ErrorIs(t, repo.Finish(ctx, stmt.ID, Outcome{Status: models.StatementStatusCancelled}), ErrInvalidTransition)
	})

	t.Run("non terminal target is rejected", func(t *testing.T) {
		stmt := newStatement(t, repo)
		err := repo.Finish(ctx, stmt.ID, Outcome{Status: models.StatementStatusProcessing})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown statement is not found", func(t *testing.T) {
		require.ErrorIs(t, repo.MarkProcessing(ctx, "missing"), ErrNotFound)
		_, err := repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("interrupted statements are failed", func(t *testing.T) {
		pending := newStatement(t, repo)
		running := newStatement(t, repo)
		require.NoError(t, repo.MarkProcessing(ctx, running.ID))

		n, err := repo.FailInterrupted(ctx, "interrupted by restart")
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(2))

		for _, id := range []string{pending.ID, running.ID} {
			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			require.Equal(t, models.StatementStatusFailed, got.Status)
		}
	})
}

func TestStatementRepository_ListRecent(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewStatementRepository(tx)

	newStatement(t, repo)
	newStatement(t, repo)

	list, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestStatementRepository_FinishFromPendingOnly(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewStatementRepository(tx)

	t.Run("pending statement is cancelled", func(t *testing.T) {
		stmt := newStatement(t, repo)
		require.NoError(t, repo.Finish(ctx, stmt.ID, Outcome{
			Status: models.StatementStatusCancelled,
			From:   models.StatementStatusPending,
		}))

		fetched, err := repo.GetByID(ctx, stmt.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatementStatusCancelled, fetched.Status)
	})

	t.Run("processing statement is left alone", func(t *testing.T) {
		stmt := newStatement(t, repo)
		require.NoError(t, repo.MarkProcessing(ctx, stmt.ID))

		err := repo.Finish(ctx, stmt.ID, Outcome{
			Status: models.StatementStatusCancelled,
			From:   models.StatementStatusPending,
		})
		require.ErrorIs(t, err, ErrInvalidTransition)

		fetched, err := repo.GetByID(ctx, stmt.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatementStatusProcessing, fetched.Status)
	})

	t.Run("source status must lead to the target", func(t *testing.T) {
		stmt := newStatement(t, repo)
		err := repo.Finish(ctx, stmt.ID, Outcome{
			Status: models.StatementStatusCompleted,
			From:   models.StatementStatusPending,
		})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}
