// Package store provides the run history storage for the analysis service.
// Handler code depends on the Store interface so the in-memory implementation
// can be swapped without touching the API layer.
package store

import (
	"context"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
)

// Store persists analysis runs.
type Store interface {
	ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error)
	GetRun(ctx context.Context, id string) (*models.AnalysisRun, error)
	CreateRun(ctx context.Context, run *models.AnalysisRun) error
	UpdateRun(ctx context.Context, run *models.AnalysisRun) error

	// Ping checks whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
