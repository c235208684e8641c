package retention

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
	"github.com/rs/zerolog/log"
)

// LocalFileArchiver writes expired runs as JSON files to a local directory.
// This is the default archive backend for development deployments.
//
// Directory structure:
//
//	{basePath}/runs/{run-id}.json[.gz]
type LocalFileArchiver struct {
	basePath string
	compress bool
}

// NewLocalFileArchiver creates a file-based archiver. If basePath is empty,
// it defaults to "~/.ai-mammoth/archive".
func NewLocalFileArchiver(basePath string, compress bool) *LocalFileArchiver {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			basePath = "/tmp/ai-mammoth/archive"
		} else {
			basePath = filepath.Join(home, ".ai-mammoth", "archive")
		}
	}
	return &LocalFileArchiver{basePath: basePath, compress: compress}
}

func (a *LocalFileArchiver) ArchiveRun(_ context.Context, run *models.AnalysisRun) (string, error) {
	dir := filepath.Join(a.basePath, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	filename := run.ID + ".json"
	if a.compress {
		filename += ".gz"
	}
	fpath := filepath.Join(dir, filename)

	f, err := os.Create(fpath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	// Success here gates deletion from the hot store, so every flush error
	// must surface instead of being swallowed by a deferred close.
	if a.compress {
		gw := gzip.NewWriter(f)
		if err := json.NewEncoder(gw).Encode(run); err != nil {
			f.Close()
			return "", fmt.Errorf("encode run %s: %w", run.ID, err)
		}
		if err := gw.Close(); err != nil {
			f.Close()
			return "", fmt.Errorf("flush archive for run %s: %w", run.ID, err)
		}
	} else {
		if err := json.NewEncoder(f).Encode(run); err != nil {
			f.Close()
			return "", fmt.Errorf("encode run %s: %w", run.ID, err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive for run %s: %w", run.ID, err)
	}

	log.Debug().
		Str("path", fpath).
		Str("run_id", run.ID).
		Msg("Archived run to local file")

	return fpath, nil
}

// HealthCheck verifies the base path is writable.
func (a *LocalFileArchiver) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(a.basePath, 0o755); err != nil {
		return fmt.Errorf("archive path not writable: %w", err)
	}
	testFile := filepath.Join(a.basePath, ".healthcheck")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("archive path not writable: %w", err)
	}
	os.Remove(testFile)
	return nil
}
