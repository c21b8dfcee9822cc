package event

import (
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/util/ratelimiter"
)

// ProgressHandler logs per-asset outcomes and a throttled progress line
type ProgressHandler struct {
	logger  *zap.Logger
	total   int
	limiter *ratelimiter.Limiter
	done    atomic.Int64
	failed  atomic.Int64
}

// NewProgressHandler creates a ProgressHandler for a batch of total assets.
// Progress lines are emitted at most once per interval.
func NewProgressHandler(logger *zap.Logger, total int, interval time.Duration) *ProgressHandler {
	return &ProgressHandler{
		logger:  logger,
		total:   total,
		limiter: ratelimiter.New(interval),
	}
}

// Handle logs the event
func (h *ProgressHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case AssetSaved:
		h.done.Add(1)
		h.logger.Debug("asset saved",
			zap.String("url", e.Result.Reference.URL),
			zap.String("category", string(e.Result.Reference.Category)),
			zap.String("path", e.Result.Path),
			zap.String("size", humanize.Bytes(uint64(e.Result.Bytes))),
			zap.Duration("duration", e.Result.Duration),
		)
	case AssetSkipped:
		h.done.Add(1)
		h.logger.Debug("asset skipped",
			zap.String("url", e.Result.Reference.URL),
			zap.String("path", e.Result.Path),
			zap.String("reason", e.Result.Reason),
		)
	case AssetFailed:
		h.done.Add(1)
		h.failed.Add(1)
		h.logger.Warn("asset failed",
			zap.String("url", e.Result.Reference.URL),
			zap.String("category", string(e.Result.Reference.Category)),
			zap.Int("status", e.Result.StatusCode),
			zap.Error(e.Result.Err),
		)
	case BatchFinished:
		h.logger.Info("batch finished",
			zap.Int("saved", e.Summary.Saved),
			zap.Int("skipped", e.Summary.Skipped),
			zap.Int("failed", e.Summary.Failed),
			zap.String("bytes", humanize.Bytes(uint64(e.Summary.Bytes))),
			zap.Duration("duration", e.Duration),
		)
		return nil
	default:
		return nil
	}

	if allowed, _ := h.limiter.Allow(); allowed {
		h.logger.Info("mirror progress",
			zap.Int64("done", h.done.Load()),
			zap.Int("total", h.total),
			zap.Int64("failed", h.failed.Load()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *ProgressHandler) HandledEvents() []string {
	return []string{"*"} // Handle all events
}

// Done returns the number of assets that reached a terminal state
func (h *ProgressHandler) Done() int64 {
	return h.done.Load()
}

// MetricsHandler counts outcomes from events
type MetricsHandler struct {
	saved   atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
	bytes   atomic.Int64
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case AssetSaved:
		h.saved.Add(1)
		h.bytes.Add(e.Result.Bytes)
	case AssetSkipped:
		h.skipped.Add(1)
	case AssetFailed:
		h.failed.Add(1)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		NameAssetSaved,
		NameAssetSkipped,
		NameAssetFailed,
	}
}

// Summary returns the counts observed so far
func (h *MetricsHandler) Summary() domain.Summary {
	return domain.Summary{
		Saved:   int(h.saved.Load()),
		Skipped: int(h.skipped.Load()),
		Failed:  int(h.failed.Load()),
		Bytes:   h.bytes.Load(),
	}
}
