package store

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
	"github.com/rs/zerolog/log"
)

// defaultRunTTL is how long finished runs are kept before eviction.
const defaultRunTTL = 7 * 24 * time.Hour

// MemoryStore implements Store with an in-memory map. Finished runs older
// than the configured TTL are reported by ExpiredRuns; the retention janitor
// archives and purges them.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*models.AnalysisRun

	runTTL time.Duration
}

// NewMemoryStore creates a new in-memory run store. The retention window is
// configurable via MAMMOTH_RUN_TTL (a Go duration string).
func NewMemoryStore() *MemoryStore {
	runTTL := defaultRunTTL
	if ttlStr := os.Getenv("MAMMOTH_RUN_TTL"); ttlStr != "" {
		if parsed, err := time.ParseDuration(ttlStr); err == nil {
			runTTL = parsed
		} else {
			log.Warn().Str("value", ttlStr).Msg("invalid MAMMOTH_RUN_TTL, using default 7d")
		}
	}

	return &MemoryStore{
		runs:   make(map[string]*models.AnalysisRun),
		runTTL: runTTL,
	}
}

// ListRuns returns runs newest first, up to limit (0 means no limit).
func (m *MemoryStore) ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]models.AnalysisRun, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryStore) GetRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "run", Key: id}
	}
	cp := *run
	return &cp, nil
}

func (m *MemoryStore) CreateRun(ctx context.Context, run *models.AnalysisRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateRun(ctx context.Context, run *models.AnalysisRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		return &ErrNotFound{Entity: "run", Key: run.ID}
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

// DeleteRun removes a run from the store.
func (m *MemoryStore) DeleteRun(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return &ErrNotFound{Entity: "run", Key: id}
	}
	delete(m.runs, id)
	return nil
}

// ExpiredRuns returns finished runs past the retention window. In-flight
// runs are never reported.
func (m *MemoryStore) ExpiredRuns(ctx context.Context) ([]models.AnalysisRun, error) {
	cutoff := time.Now().Add(-m.runTTL)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []models.AnalysisRun
	for _, run := range m.runs {
		if run.Status == models.RunRunning {
			continue
		}
		if run.FinishedAt != nil && run.FinishedAt.Before(cutoff) {
			expired = append(expired, *run)
		}
	}
	return expired, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
