package repository

import (
	"time"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

// RunRepository defines the interface for the mirror run manifest
type RunRepository interface {
	// CreateRun inserts a new run in the running state
	CreateRun(run *domain.Run) error

	// FinishRun stores the final status and summary of a run
	FinishRun(run *domain.Run) error

	// GetRun retrieves a run by ID
	// Returns domain.ErrNotFound if the run does not exist
	GetRun(id string) (*domain.Run, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(limit int) ([]*domain.Run, error)

	// FailStaleRuns marks runs still running after staleAfter as failed.
	// Such runs belong to processes that were killed.
	// Returns: number of runs updated
	FailStaleRuns(staleAfter time.Duration) (int, error)
}

// ResultRepository defines the interface for per-asset results of a run
type ResultRepository interface {
	// RecordResult stores one asset result; safe for concurrent callers
	RecordResult(rec *domain.ResultRecord) error

	// ListResults returns the results of a run in submission order
	ListResults(runID string) ([]*domain.ResultRecord, error)
}
