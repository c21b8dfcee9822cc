package domain

import "time"

// Outcome is the terminal state of a single asset download
type Outcome string

// Asset download states
const (
	OutcomePending  Outcome = "pending"
	OutcomeInFlight Outcome = "in_flight"
	OutcomeSaved    Outcome = "saved"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// IsTerminal returns true for saved, skipped and failed
func (o Outcome) IsTerminal() bool {
	return o == OutcomeSaved || o == OutcomeSkipped || o == OutcomeFailed
}

// Skip reasons
const (
	SkipReasonExists = "destination already exists"
)

// DownloadResult represents the result of a single asset download
type DownloadResult struct {
	// Reference is the asset this result belongs to
	Reference AssetReference

	// Outcome is saved, skipped or failed
	Outcome Outcome

	// Path is the local destination (set for saved and skipped)
	Path string

	// Reason explains a skip
	Reason string

	// StatusCode is the HTTP status when a response was received
	StatusCode int

	// Err is the failure cause
	Err error

	// Bytes is the number of bytes written to disk
	Bytes int64

	// Duration is the wall time spent on this asset
	Duration time.Duration
}

// Saved builds a saved result
func Saved(ref AssetReference, path string, bytes int64, statusCode int) DownloadResult {
	return DownloadResult{Reference: ref, Outcome: OutcomeSaved, Path: path, Bytes: bytes, StatusCode: statusCode}
}

// Skipped builds a skipped result
func Skipped(ref AssetReference, path, reason string) DownloadResult {
	return DownloadResult{Reference: ref, Outcome: OutcomeSkipped, Path: path, Reason: reason}
}

// Failed builds a failed result. The status code is taken from a StatusError when present.
func Failed(ref AssetReference, err error) DownloadResult {
	code, _ := GetStatusCode(err)
	return DownloadResult{Reference: ref, Outcome: OutcomeFailed, Err: err, StatusCode: code}
}

// ErrorString returns the failure message or ""
func (r DownloadResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary counts outcomes of a batch
type Summary struct {
	Saved   int   `json:"saved"`
	Skipped int   `json:"skipped"`
	Failed  int   `json:"failed"`
	Bytes   int64 `json:"bytes"`
}

// Total returns the number of results summarized
func (s Summary) Total() int {
	return s.Saved + s.Skipped + s.Failed
}

// Summarize computes the outcome counts for results
func Summarize(results []DownloadResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case OutcomeSaved:
			s.Saved++
			s.Bytes += r.Bytes
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
