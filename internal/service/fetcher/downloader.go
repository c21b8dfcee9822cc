package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/port"
)

// Downloader fetches a single asset and writes it to its destination
type Downloader struct {
	client       port.HTTPClient
	fs           port.FileSystem
	logger       *zap.Logger
	skipExisting bool
	maxBytes     int64
}

// NewDownloader creates a new Downloader
func NewDownloader(
	client port.HTTPClient,
	fs port.FileSystem,
	logger *zap.Logger,
	skipExisting bool,
	maxBytes int64,
) *Downloader {
	return &Downloader{
		client:       client,
		fs:           fs,
		logger:       logger,
		skipExisting: skipExisting,
		maxBytes:     maxBytes,
	}
}

// Download moves one asset from in-flight to saved, skipped or failed
func (d *Downloader) Download(ctx context.Context, ref domain.AssetReference, dest string) domain.DownloadResult {
	start := time.Now()
	result := d.download(ctx, ref, dest)
	result.Duration = time.Since(start)
	return result
}

func (d *Downloader) download(ctx context.Context, ref domain.AssetReference, dest string) domain.DownloadResult {
	if d.skipExisting && d.fs.FileExists(dest) {
		return domain.Skipped(ref, dest, domain.SkipReasonExists)
	}

	d.logger.Debug("downloading asset",
		zap.String("url", ref.URL),
		zap.String("category", string(ref.Category)),
		zap.String("dest", dest))

	body, status, length, err := d.client.Download(ctx, ref.URL)
	if err != nil {
		return domain.Failed(ref, fmt.Errorf("download failed: %w", err))
	}
	defer body.Close()

	if d.maxBytes > 0 && length > d.maxBytes {
		return domain.Failed(ref, fmt.Errorf("%w: content length %d exceeds %d bytes", domain.ErrAssetTooLarge, length, d.maxBytes))
	}

	reader := &trackingReader{reader: body}
	written, err := d.fs.WriteFile(dest, reader, d.maxBytes)
	if err != nil {
		switch {
		case reader.err != nil:
			// The body broke off mid-transfer: a transport failure, not a local one
			return domain.Failed(ref, fmt.Errorf("read body: %w", reader.err))
		case errors.Is(err, domain.ErrAssetTooLarge):
			return domain.Failed(ref, err)
		default:
			return domain.Failed(ref, domain.NewWriteError(dest, err))
		}
	}

	return domain.Saved(ref, dest, written, status)
}

// trackingReader remembers the first non-EOF read error of the response body
type trackingReader struct {
	reader io.Reader
	err    error
}

func (r *trackingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if err != nil && err != io.EOF && r.err == nil {
		r.err = err
	}
	return n, err
}
