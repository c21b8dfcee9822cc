package domain

import "time"

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one mirror invocation as recorded in the manifest
type Run struct {
	ID         string     `json:"id"`
	TargetURL  string     `json:"target_url"`
	OutputRoot string     `json:"output_root"`
	Status     string     `json:"status"`
	AssetCount int        `json:"asset_count"`
	Summary    Summary    `json:"summary"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finish marks the run completed, or failed when err is non-nil
func (r *Run) Finish(summary Summary, err error) {
	now := time.Now()
	r.FinishedAt = &now
	r.Summary = summary
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusCompleted
}

// Duration returns the run duration, or zero while running
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ResultRecord is a persisted DownloadResult
type ResultRecord struct {
	RunID      string   `json:"run_id"`
	Index      int      `json:"index"`
	URL        string   `json:"url"`
	Category   Category `json:"category"`
	Outcome    Outcome  `json:"outcome"`
	Path       string   `json:"path,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	Bytes      int64    `json:"bytes"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// NewResultRecord flattens a DownloadResult for storage
func NewResultRecord(runID string, index int, r DownloadResult) *ResultRecord {
	return &ResultRecord{
		RunID:      runID,
		Index:      index,
		URL:        r.Reference.URL,
		Category:   r.Reference.Category,
		Outcome:    r.Outcome,
		Path:       r.Path,
		Reason:     r.Reason,
		StatusCode: r.StatusCode,
		Bytes:      r.Bytes,
		Error:      r.ErrorString(),
		DurationMs: r.Duration.Milliseconds(),
	}
}
