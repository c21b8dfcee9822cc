package port

import (
	"context"
	"io"
	"net/url"
)

// Page is a fetched HTML document
type Page struct {
	// URL is the final URL after redirects, used as the base for relative references
	URL  *url.URL
	Body []byte
}

// HTTPClient defines the outbound HTTP operations of a mirror run
type HTTPClient interface {
	// FetchPage retrieves a document in full.
	// Non-2xx responses return a *domain.StatusError.
	FetchPage(ctx context.Context, rawURL string) (*Page, error)

	// Download opens an asset body for streaming.
	// Non-2xx responses return a *domain.StatusError.
	// Returns: body reader, HTTP status, content length (-1 if unknown), error
	Download(ctx context.Context, rawURL string) (io.ReadCloser, int, int64, error)
}
