package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

func TestClient_FetchPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/docs/page.html", http.StatusFound)
		case "/docs/page.html":
			gotUA = r.Header.Get("User-Agent")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(&Config{Timeout: 5 * time.Second, UserAgent: "test-agent/1.0"})

	page, err := c.FetchPage(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if string(page.Body) != "<html></html>" {
		t.Errorf("Body = %q", page.Body)
	}
	if page.URL.Path != "/docs/page.html" {
		t.Errorf("final URL = %s, want redirect target", page.URL)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want test-agent/1.0", gotUA)
	}
}

func TestClient_FetchPage_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(nil).FetchPage(context.Background(), srv.URL)
	code, ok := domain.GetStatusCode(err)
	if !ok || code != http.StatusServiceUnavailable {
		t.Fatalf("FetchPage() error = %v, want status 503", err)
	}
}

func TestClient_FetchPage_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	c := New(&Config{MaxPageBytes: 10})
	if _, err := c.FetchPage(context.Background(), srv.URL); !errors.Is(err, domain.ErrAssetTooLarge) {
		t.Fatalf("FetchPage() error = %v, want ErrAssetTooLarge", err)
	}
}

func TestClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.js" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("console.log(1)"))
	}))
	defer srv.Close()

	c := New(nil)

	body, status, _, err := c.Download(context.Background(), srv.URL+"/app.js")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "console.log(1)" || status != http.StatusOK {
		t.Errorf("Download() = %q, %d", data, status)
	}

	_, _, _, err = c.Download(context.Background(), srv.URL+"/missing.js")
	if code, _ := domain.GetStatusCode(err); code != http.StatusNotFound {
		t.Errorf("Download() error = %v, want 404", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(&Config{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, _, _, err := c.Download(context.Background(), srv.URL+"/slow.png")
	if err == nil {
		t.Fatal("Download() should time out")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestClient_InvalidURL(t *testing.T) {
	c := New(nil)
	for _, raw := range []string{"ftp://ex.com/a", "not a url", "/relative/path"} {
		if _, _, _, err := c.Download(context.Background(), raw); !errors.Is(err, domain.ErrInvalidURL) {
			t.Errorf("Download(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := New(&Config{RequestsPerSecond: 0.001})

	// First request consumes the single token
	if _, err := c.FetchPage(context.Background(), srv.URL); err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.FetchPage(ctx, srv.URL); err == nil {
		t.Fatal("second FetchPage() should fail waiting for the limiter")
	}
}
