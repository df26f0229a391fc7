// backend-go/internal/repository/run_repository.go
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

var ErrRunNotFound = errors.New("analysis run not found")

// RunRepository stores the history of analysis runs and the alerts each run raised.
type RunRepository interface {
	SaveRun(ctx context.Context, run *domain.AnalysisRun, alerts []domain.Alert) error
	ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error)
	GetRun(ctx context.Context, id string) (*domain.AnalysisRun, error)
	RunAlerts(ctx context.Context, id string) ([]domain.Alert, error)
}

// MemoryRunRepository keeps runs in process. Used when no database is configured.
type MemoryRunRepository struct {
	mu     sync.RWMutex
	runs   map[string]domain.AnalysisRun
	alerts map[string][]domain.Alert
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{
		runs:   make(map[string]domain.AnalysisRun),
		alerts: make(map[string][]domain.Alert),
	}
}

func (r *MemoryRunRepository) SaveRun(ctx context.Context, run *domain.AnalysisRun, alerts []domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	r.alerts[run.ID] = append([]domain.Alert(nil), alerts...)
	return nil
}

// ListRuns returns the newest runs first.
func (r *MemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]domain.AnalysisRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *MemoryRunRepository) GetRun(ctx context.Context, id string) (*domain.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (r *MemoryRunRepository) RunAlerts(ctx context.Context, id string) ([]domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alerts, ok := r.alerts[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return append([]domain.Alert(nil), alerts...), nil
}

var _ RunRepository = (*MemoryRunRepository)(nil)
