package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/domain/event"
	"github.com/vertextoedge/pagemirror/internal/port"
	"github.com/vertextoedge/pagemirror/internal/service/discovery"
	"github.com/vertextoedge/pagemirror/internal/service/fetcher"
	"github.com/vertextoedge/pagemirror/internal/service/maintenance"
)

// Manifest records runs and their results. Implemented by the sqlite store.
type Manifest interface {
	port.RunRepository
	port.ResultRepository
}

// Config contains mirror service configuration
type Config struct {
	OutputRoot       string
	Fetcher          *fetcher.Config
	Maintenance      *maintenance.Config
	RunTimeout       time.Duration
	ProgressInterval time.Duration
}

// DefaultConfig returns default mirror configuration
func DefaultConfig() *Config {
	return &Config{
		OutputRoot:       "scraped_files",
		Fetcher:          fetcher.DefaultConfig(),
		Maintenance:      maintenance.DefaultConfig(),
		ProgressInterval: 2 * time.Second,
	}
}

// Service mirrors one page and its static assets into a local directory
type Service struct {
	config   *Config
	client   port.HTTPClient
	fs       port.FileSystem
	manifest Manifest
	logger   *zap.Logger
}

// sweeper returns the maintenance service for one run
func (s *Service) sweeper(log *zap.Logger) *maintenance.Service {
	var runs port.RunRepository
	if s.manifest != nil {
		runs = s.manifest
	}
	return maintenance.New(s.config.Maintenance, runs, s.fs, log)
}

// New creates a new mirror Service. manifest may be nil.
func New(
	cfg *Config,
	client port.HTTPClient,
	fs port.FileSystem,
	manifest Manifest,
	logger *zap.Logger,
) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = fetcher.DefaultConfig()
	}
	if cfg.Maintenance == nil {
		cfg.Maintenance = maintenance.DefaultConfig()
	}

	return &Service{
		config:   cfg,
		client:   client,
		fs:       fs,
		manifest: manifest,
		logger:   logger,
	}
}

// Run fetches targetURL, saves it as index.html, discovers its assets and
// downloads them. The returned error is a *domain.FetchError when the page
// itself could not be retrieved, or a setup error when the output root
// cannot be written. Per-asset failures are only reported in the Report.
func (s *Service) Run(ctx context.Context, targetURL string) (*Report, error) {
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	report := &Report{
		RunID:      uuid.NewString(),
		TargetURL:  targetURL,
		OutputRoot: s.config.OutputRoot,
		StartedAt:  time.Now(),
	}
	log := s.logger.With(zap.String("run_id", report.RunID))

	run := &domain.Run{
		ID:         report.RunID,
		TargetURL:  targetURL,
		OutputRoot: s.config.OutputRoot,
		StartedAt:  report.StartedAt,
	}
	s.createRun(log, run)

	err := s.run(ctx, log, report)
	report.Duration = time.Since(report.StartedAt)

	run.AssetCount = len(report.References)
	run.Finish(report.Summary, err)
	s.finishRun(log, run)

	if err != nil {
		return report, err
	}

	log.Info("mirror finished",
		zap.String("url", targetURL),
		zap.Int("saved", report.Summary.Saved),
		zap.Int("skipped", report.Summary.Skipped),
		zap.Int("failed", report.Summary.Failed),
		zap.Duration("duration", report.Duration))

	return report, nil
}

func (s *Service) run(ctx context.Context, log *zap.Logger, report *Report) error {
	layout, err := domain.NewMirrorLayout(s.config.OutputRoot)
	if err != nil {
		return err
	}

	log.Info("fetching page", zap.String("url", report.TargetURL))
	page, err := s.client.FetchPage(ctx, report.TargetURL)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return err
		}
		return domain.NewFetchError(report.TargetURL, err)
	}
	report.FinalURL = page.URL.String()

	if err := s.fs.EnsureDir(layout.Root()); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	// Leftovers of interrupted runs into the same root
	s.sweeper(log).Sweep(layout.Dirs())

	report.DocumentPath = layout.RootDocumentPath()
	if _, err := s.fs.WriteFile(report.DocumentPath, bytes.NewReader(page.Body), 0); err != nil {
		return fmt.Errorf("save page: %w", err)
	}

	refs := discovery.Discover(string(page.Body), page.URL)
	report.References = refs.References()

	counts := refs.CountByCategory()
	fields := []zap.Field{zap.Int("assets", refs.Len())}
	for _, c := range domain.AssetCategories {
		fields = append(fields, zap.Int(string(c), counts[c]))
	}
	log.Info("assets discovered", fields...)

	events := event.NewInMemoryDispatcher(func(e event.DomainEvent, err error) {
		log.Warn("event handler failed",
			zap.String("event", e.EventName()),
			zap.Error(err))
	})
	events.Subscribe(event.NewProgressHandler(log, refs.Len(), s.config.ProgressInterval))
	if s.manifest != nil {
		events.Subscribe(NewRecorder(report.RunID, s.manifest))
	}

	f := fetcher.New(s.config.Fetcher, s.client, s.fs, events, log)
	report.Results = f.FetchAll(ctx, report.References, layout)
	report.Summary = domain.Summarize(report.Results)

	return nil
}

// createRun and finishRun keep the manifest best-effort: a broken manifest never fails a mirror
func (s *Service) createRun(log *zap.Logger, run *domain.Run) {
	if s.manifest == nil {
		return
	}
	if err := s.manifest.CreateRun(run); err != nil {
		log.Warn("failed to record run", zap.Error(err))
	}
}

func (s *Service) finishRun(log *zap.Logger, run *domain.Run) {
	if s.manifest == nil {
		return
	}
	if err := s.manifest.FinishRun(run); err != nil {
		log.Warn("failed to finish run", zap.Error(err))
	}
}
