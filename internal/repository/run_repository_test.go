package repository

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRunRepository()
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		run := &domain.AnalysisRun{ID: id, Items: i, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.SaveRun(ctx, run, []domain.Alert{{ItemID: "item-" + id}}))
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	run, err := repo.GetRun(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, run.Items)

	alerts, err := repo.RunAlerts(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []domain.Alert{{ItemID: "item-b"}}, alerts)

	_, err = repo.GetRun(ctx, "zzz")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = repo.RunAlerts(ctx, "zzz")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
