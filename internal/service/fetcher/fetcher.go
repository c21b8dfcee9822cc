package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/domain/event"
	"github.com/vertextoedge/pagemirror/internal/port"
)

// Config contains batch fetcher configuration
type Config struct {
	WorkerCount   int
	SkipExisting  bool
	MaxAssetBytes int64
}

// DefaultConfig returns default fetcher configuration
func DefaultConfig() *Config {
	return &Config{
		WorkerCount: 8,
	}
}

// Fetcher downloads a set of asset references with bounded parallelism
type Fetcher struct {
	config     *Config
	fs         port.FileSystem
	events     event.EventDispatcher
	logger     *zap.Logger
	downloader *Downloader
}

// New creates a new Fetcher. A nil dispatcher disables events.
func New(
	cfg *Config,
	client port.HTTPClient,
	fs port.FileSystem,
	events event.EventDispatcher,
	logger *zap.Logger,
) *Fetcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 8
	}
	if events == nil {
		events = event.NewNullDispatcher()
	}

	return &Fetcher{
		config:     cfg,
		fs:         fs,
		events:     events,
		logger:     logger,
		downloader: NewDownloader(client, fs, logger, cfg.SkipExisting, cfg.MaxAssetBytes),
	}
}

// FetchAll downloads every reference into layout and returns one result per
// reference, in submission order. A failing asset never stops its siblings;
// only cancellation of ctx (an optional run timeout) fails the ones not yet started.
func (f *Fetcher) FetchAll(ctx context.Context, refs []domain.AssetReference, layout *domain.MirrorLayout) []domain.DownloadResult {
	start := time.Now()
	results := make([]domain.DownloadResult, len(refs))
	for i, ref := range refs {
		results[i] = domain.DownloadResult{Reference: ref, Outcome: domain.OutcomePending}
	}

	f.prepareLayout(layout)
	targets := planTargets(refs, layout)

	f.logger.Info("fetching assets",
		zap.Int("assets", len(refs)),
		zap.Int("workers", f.config.WorkerCount),
		zap.Bool("skip_existing", f.config.SkipExisting))

	sem := semaphore.NewWeighted(int64(f.config.WorkerCount))
	var wg sync.WaitGroup

	for i, ref := range refs {
		if targets[i].err != nil {
			f.finish(results, i, domain.Failed(ref, targets[i].err))
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			f.finish(results, i, domain.Failed(ref, fmt.Errorf("not started: %w", err)))
			continue
		}

		results[i].Outcome = domain.OutcomeInFlight
		wg.Add(1)
		go func(i int, ref domain.AssetReference, dest string) {
			defer wg.Done()
			defer sem.Release(1)
			f.finish(results, i, f.downloader.Download(ctx, ref, dest))
		}(i, ref, targets[i].path)
	}

	wg.Wait()

	f.events.Dispatch(event.NewBatchFinished(domain.Summarize(results), time.Since(start)))
	return results
}

// finish stores a terminal result in its own slot and announces it
func (f *Fetcher) finish(results []domain.DownloadResult, i int, result domain.DownloadResult) {
	results[i] = result
	f.events.Dispatch(event.NewAssetEvent(i, result))
}

// prepareLayout creates the category directories up front.
// Failures are only logged: the write of each asset retries the creation and
// reports its own error.
func (f *Fetcher) prepareLayout(layout *domain.MirrorLayout) {
	for _, dir := range layout.Dirs() {
		if err := f.fs.EnsureDir(dir); err != nil {
			f.logger.Warn("failed to create directory",
				zap.String("dir", dir),
				zap.Error(err))
		}
	}
}
