package mirror

import (
	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/domain/event"
	"github.com/vertextoedge/pagemirror/internal/port"
)

// Recorder stores every terminal asset result of one run in the manifest
type Recorder struct {
	runID   string
	results port.ResultRepository
}

// NewRecorder creates a Recorder for runID
func NewRecorder(runID string, results port.ResultRepository) *Recorder {
	return &Recorder{runID: runID, results: results}
}

// Handle records the result carried by an asset event
func (r *Recorder) Handle(e event.DomainEvent) error {
	var index int
	var result domain.DownloadResult

	switch ev := e.(type) {
	case event.AssetSaved:
		index, result = ev.Index, ev.Result
	case event.AssetSkipped:
		index, result = ev.Index, ev.Result
	case event.AssetFailed:
		index, result = ev.Index, ev.Result
	default:
		return nil
	}

	return r.results.RecordResult(domain.NewResultRecord(r.runID, index, result))
}

// HandledEvents returns the asset event names
func (r *Recorder) HandledEvents() []string {
	return []string{event.NameAssetSaved, event.NameAssetSkipped, event.NameAssetFailed}
}
