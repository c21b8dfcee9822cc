package mirror

import (
	"time"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

// Report is the outcome of one mirror run
type Report struct {
	RunID        string
	TargetURL    string
	FinalURL     string
	OutputRoot   string
	DocumentPath string
	References   []domain.AssetReference
	Results      []domain.DownloadResult
	Summary      domain.Summary
	StartedAt    time.Time
	Duration     time.Duration
}

// ResultView is the JSON form of a DownloadResult
type ResultView struct {
	URL        string `json:"url"`
	Category   string `json:"category"`
	Outcome    string `json:"outcome"`
	Path       string `json:"path,omitempty"`
	Reason     string `json:"reason,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Bytes      int64  `json:"bytes"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ReportView is the JSON form of a Report
type ReportView struct {
	RunID        string       `json:"run_id"`
	TargetURL    string       `json:"target_url"`
	FinalURL     string       `json:"final_url,omitempty"`
	OutputRoot   string       `json:"output_root"`
	DocumentPath string       `json:"document_path,omitempty"`
	Saved        int          `json:"saved"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	Bytes        int64        `json:"bytes"`
	DurationMs   int64        `json:"duration_ms"`
	Results      []ResultView `json:"results"`
}

// View converts the report for JSON output
func (r *Report) View() ReportView {
	v := ReportView{
		RunID:        r.RunID,
		TargetURL:    r.TargetURL,
		FinalURL:     r.FinalURL,
		OutputRoot:   r.OutputRoot,
		DocumentPath: r.DocumentPath,
		Saved:        r.Summary.Saved,
		Skipped:      r.Summary.Skipped,
		Failed:       r.Summary.Failed,
		Bytes:        r.Summary.Bytes,
		DurationMs:   r.Duration.Milliseconds(),
		Results:      make([]ResultView, 0, len(r.Results)),
	}

	for _, res := range r.Results {
		v.Results = append(v.Results, ResultView{
			URL:        res.Reference.URL,
			Category:   string(res.Reference.Category),
			Outcome:    string(res.Outcome),
			Path:       res.Path,
			Reason:     res.Reason,
			StatusCode: res.StatusCode,
			Bytes:      res.Bytes,
			Error:      res.ErrorString(),
			DurationMs: res.Duration.Milliseconds(),
		})
	}
	return v
}

// Failures returns the failed results in submission order
func (r *Report) Failures() []domain.DownloadResult {
	var out []domain.DownloadResult
	for _, res := range r.Results {
		if res.Outcome == domain.OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}
