package maintenance

import (
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/pagemirror/internal/port"
)

// Config contains maintenance configuration
type Config struct {
	// TempFileMaxAge is the age after which an unfinished download is removed
	TempFileMaxAge time.Duration

	// StaleRunTimeout is when a run still marked running is considered interrupted
	StaleRunTimeout time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		TempFileMaxAge:  time.Hour,
		StaleRunTimeout: 24 * time.Hour,
	}
}

// Result reports what a sweep cleaned up
type Result struct {
	TempFilesRemoved int
	StaleRunsFailed  int
}

// Service cleans up what interrupted runs leave behind in an output root
type Service struct {
	config *Config
	runs   port.RunRepository
	fs     port.FileSystem
	logger *zap.Logger
}

// New creates a new maintenance Service. runs may be nil.
func New(cfg *Config, runs port.RunRepository, fs port.FileSystem, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = time.Hour
	}
	if cfg.StaleRunTimeout == 0 {
		cfg.StaleRunTimeout = 24 * time.Hour
	}

	return &Service{
		config: cfg,
		runs:   runs,
		fs:     fs,
		logger: logger,
	}
}

// Sweep removes old temp files from dirs and fails stale runs in the manifest.
// Errors are logged; a sweep never blocks a mirror.
func (s *Service) Sweep(dirs []string) Result {
	var res Result
	res.TempFilesRemoved = s.cleanupTempFiles(dirs)
	res.StaleRunsFailed = s.failStaleRuns()
	return res
}

// failStaleRuns marks runs of killed processes as failed
func (s *Service) failStaleRuns() int {
	if s.runs == nil {
		return 0
	}

	failed, err := s.runs.FailStaleRuns(s.config.StaleRunTimeout)
	if err != nil {
		s.logger.Error("failed to fail stale runs", zap.Error(err))
	} else if failed > 0 {
		s.logger.Info("marked interrupted runs as failed", zap.Int("count", failed))
	}
	return failed
}

// cleanupTempFiles removes old temporary files from the given directories
func (s *Service) cleanupTempFiles(dirs []string) int {
	removed := 0
	for _, dir := range dirs {
		paths, err := s.fs.ListTempFiles(dir, s.config.TempFileMaxAge)
		if err != nil {
			s.logger.Error("failed to list temp files", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, p := range paths {
			if err := s.fs.DeleteFile(p); err != nil {
				s.logger.Warn("failed to remove temp file", zap.String("path", p), zap.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("cleaned up old temp files", zap.Int("count", removed))
	}
	return removed
}
