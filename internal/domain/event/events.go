package event

import (
	"time"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

// Event names
const (
	NameAssetSaved    = "asset.saved"
	NameAssetSkipped  = "asset.skipped"
	NameAssetFailed   = "asset.failed"
	NameBatchFinished = "batch.finished"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AssetSaved is raised when an asset was written to disk
type AssetSaved struct {
	BaseEvent
	Index  int
	Result domain.DownloadResult
}

// EventName returns the event name
func (e AssetSaved) EventName() string {
	return NameAssetSaved
}

// AssetSkipped is raised when an asset was not fetched because its destination exists
type AssetSkipped struct {
	BaseEvent
	Index  int
	Result domain.DownloadResult
}

// EventName returns the event name
func (e AssetSkipped) EventName() string {
	return NameAssetSkipped
}

// AssetFailed is raised when an asset could not be fetched or written
type AssetFailed struct {
	BaseEvent
	Index  int
	Result domain.DownloadResult
}

// EventName returns the event name
func (e AssetFailed) EventName() string {
	return NameAssetFailed
}

// BatchFinished is raised once every asset of a batch reached a terminal state
type BatchFinished struct {
	BaseEvent
	Summary  domain.Summary
	Duration time.Duration
}

// EventName returns the event name
func (e BatchFinished) EventName() string {
	return NameBatchFinished
}

// NewAssetEvent builds the event matching the result's outcome.
// Returns nil for non-terminal outcomes.
func NewAssetEvent(index int, result domain.DownloadResult) DomainEvent {
	base := BaseEvent{Timestamp: time.Now()}
	switch result.Outcome {
	case domain.OutcomeSaved:
		return AssetSaved{BaseEvent: base, Index: index, Result: result}
	case domain.OutcomeSkipped:
		return AssetSkipped{BaseEvent: base, Index: index, Result: result}
	case domain.OutcomeFailed:
		return AssetFailed{BaseEvent: base, Index: index, Result: result}
	default:
		return nil
	}
}

// NewBatchFinished creates a new BatchFinished event
func NewBatchFinished(summary domain.Summary, duration time.Duration) BatchFinished {
	return BatchFinished{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		Summary:   summary,
		Duration:  duration,
	}
}
