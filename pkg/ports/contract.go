package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probaah/probaah/pkg/domain"
)

// RunReportStoreContract runs a suite of tests verifying that a ReportStore
// implementation adheres to the interface contract.
func RunReportStoreContract(t *testing.T, store ReportStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	report := func(id string) *domain.WorkflowReport {
		return &domain.WorkflowReport{
			RunID:   id,
			Request: "substitute 50 H2O with O2",
			Success: true,
			Steps: []domain.StepResult{
				{StepID: "parse-structure", Status: domain.StatusSucceeded},
				{StepID: "pack-gas", Status: domain.StatusSucceeded},
			},
			StartedAt:  time.Now().Add(-time.Minute).UTC().Truncate(time.Second),
			FinishedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		err := store.Save(ctx, report(runID))
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, runID, loaded.RunID)
		assert.Equal(t, "substitute 50 H2O with O2", loaded.Request)
		assert.True(t, loaded.Success)
		require.Len(t, loaded.Steps, 2)
		assert.Equal(t, "pack-gas", loaded.Steps[1].StepID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Latest", func(t *testing.T) {
		older := report(runID + "-older")
		newer := report(runID + "-newer")
		require.NoError(t, store.Save(ctx, older))
		require.NoError(t, store.Save(ctx, newer))
		defer func() {
			_ = store.Delete(ctx, older.RunID)
			_ = store.Delete(ctx, newer.RunID)
		}()

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, newer.RunID, latest.RunID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, report(runID)))

		err := store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, report(id1)))
		require.NoError(t, store.Save(ctx, report(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
