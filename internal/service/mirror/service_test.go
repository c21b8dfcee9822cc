package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/vertextoedge/pagemirror/internal/adapter/filesystem"
	"github.com/vertextoedge/pagemirror/internal/adapter/httpclient"
	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/service/fetcher"
)

const testPage = `<!doctype html>
<html><head>
<link rel="stylesheet" href="/static/site.css?v=3">
<script src="js/app.js"></script>
</head><body>
<img src="/img/missing.png">
<img src="/img/logo.png">
</body></html>`

// fakeManifest implements Manifest in memory
type fakeManifest struct {
	mu      sync.Mutex
	runs    map[string]*domain.Run
	results map[string][]*domain.ResultRecord
	failOn  error
}

func newFakeManifest() *fakeManifest {
	return &fakeManifest{
		runs:    make(map[string]*domain.Run),
		results: make(map[string][]*domain.ResultRecord),
	}
}

func (m *fakeManifest) CreateRun(run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	cp := *run
	cp.Status = domain.RunStatusRunning
	m.runs[run.ID] = &cp
	return nil
}

func (m *fakeManifest) FinishRun(run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	if _, ok := m.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *fakeManifest) GetRun(id string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return run, nil
}

func (m *fakeManifest) ListRuns(limit int) ([]*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Run
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *fakeManifest) FailStaleRuns(staleAfter time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.runs {
		if r.Status == domain.RunStatusRunning && time.Since(r.StartedAt) > staleAfter {
			r.Status = domain.RunStatusFailed
			n++
		}
	}
	return n, nil
}

func (m *fakeManifest) RecordResult(rec *domain.ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	m.results[rec.RunID] = append(m.results[rec.RunID], rec)
	return nil
}

func (m *fakeManifest) ListResults(runID string) ([]*domain.ResultRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*domain.ResultRecord(nil), m.results[runID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// newSite serves testPage and its assets; /img/missing.png is a 404.
// Every request path is counted in hits.
func newSite(t *testing.T, hits *sync.Map) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	count := func(r *http.Request) {
		v, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
		v.(*atomic.Int32).Add(1)
	}
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	})
	mux.HandleFunc("/static/site.css", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		w.Write([]byte("body{}"))
	})
	mux.HandleFunc("/page/js/app.js", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		w.Write([]byte("console.log(1)"))
	})
	mux.HandleFunc("/img/logo.png", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		w.Write([]byte("PNG"))
	})
	mux.HandleFunc("/img/missing.png", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func hitCount(hits *sync.Map, path string) int32 {
	v, ok := hits.Load(path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int32).Load()
}

func newTestService(t *testing.T, fs afero.Fs, cfg *Config, manifest Manifest) *Service {
	t.Helper()
	client := httpclient.New(httpclient.DefaultConfig())
	return New(cfg, client, filesystem.NewManagerWithFs(fs, 0), manifest, zap.NewNop())
}

func TestService_Run(t *testing.T) {
	var hits sync.Map
	srv := newSite(t, &hits)
	fs := afero.NewMemMapFs()
	manifest := newFakeManifest()

	cfg := DefaultConfig()
	cfg.OutputRoot = "out"
	cfg.Fetcher = &fetcher.Config{WorkerCount: 2}
	svc := newTestService(t, fs, cfg, manifest)

	report, err := svc.Run(context.Background(), srv.URL+"/page/")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if report.DocumentPath != filepath.Join("out", "index.html") {
		t.Errorf("DocumentPath = %q", report.DocumentPath)
	}
	if data, err := afero.ReadFile(fs, report.DocumentPath); err != nil || string(data) != testPage {
		t.Errorf("index.html = %q, %v", data, err)
	}

	// One result per reference, in discovery order
	wantOrder := []string{
		srv.URL + "/static/site.css?v=3",
		srv.URL + "/page/js/app.js",
		srv.URL + "/img/missing.png",
		srv.URL + "/img/logo.png",
	}
	if len(report.Results) != len(wantOrder) {
		t.Fatalf("len(Results) = %d, want %d", len(report.Results), len(wantOrder))
	}
	for i, want := range wantOrder {
		if report.Results[i].Reference.URL != want {
			t.Errorf("Results[%d].URL = %q, want %q", i, report.Results[i].Reference.URL, want)
		}
	}

	missing := report.Results[2]
	if missing.Outcome != domain.OutcomeFailed || missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing.png = %v (%d), want failed 404", missing.Outcome, missing.StatusCode)
	}

	files := map[string]string{
		filepath.Join("out", "css", "site.css"):    "body{}",
		filepath.Join("out", "js", "app.js"):       "console.log(1)",
		filepath.Join("out", "images", "logo.png"): "PNG",
	}
	for path, want := range files {
		data, err := afero.ReadFile(fs, path)
		if err != nil || string(data) != want {
			t.Errorf("%s = %q, %v; want %q", path, data, err, want)
		}
	}
	if ok, _ := afero.Exists(fs, filepath.Join("out", "images", "missing.png")); ok {
		t.Error("failed asset should not leave a file")
	}

	if report.Summary != (domain.Summary{Saved: 3, Failed: 1, Bytes: int64(len("body{}") + len("console.log(1)") + len("PNG"))}) {
		t.Errorf("Summary = %+v", report.Summary)
	}
	if len(report.Failures()) != 1 {
		t.Errorf("Failures() = %d, want 1", len(report.Failures()))
	}

	run, err := manifest.GetRun(report.RunID)
	if err != nil {
		t.Fatalf("manifest run missing: %v", err)
	}
	if run.Status != domain.RunStatusCompleted || run.AssetCount != 4 || run.Summary != report.Summary {
		t.Errorf("manifest run = %+v", run)
	}
	recs, _ := manifest.ListResults(report.RunID)
	if len(recs) != 4 {
		t.Fatalf("recorded results = %d, want 4", len(recs))
	}
	if recs[2].Outcome != domain.OutcomeFailed || recs[2].StatusCode != 404 {
		t.Errorf("recorded missing.png = %+v", recs[2])
	}
}

func TestService_Run_SkipExisting(t *testing.T) {
	var hits sync.Map
	srv := newSite(t, &hits)
	fs := afero.NewMemMapFs()

	existing := filepath.Join("out", "css", "site.css")
	if err := afero.WriteFile(fs, existing, []byte("old"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.OutputRoot = "out"
	cfg.Fetcher = &fetcher.Config{WorkerCount: 4, SkipExisting: true}
	svc := newTestService(t, fs, cfg, nil)

	report, err := svc.Run(context.Background(), srv.URL+"/page/")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := report.Results[0]; got.Outcome != domain.OutcomeSkipped || got.Path != existing {
		t.Errorf("site.css = %+v, want skipped at %s", got, existing)
	}
	if n := hitCount(&hits, "/static/site.css"); n != 0 {
		t.Errorf("site.css requested %d times, want 0", n)
	}
	if data, _ := afero.ReadFile(fs, existing); string(data) != "old" {
		t.Errorf("existing file overwritten: %q", data)
	}
}

func TestService_Run_FetchError(t *testing.T) {
	var hits sync.Map
	srv := newSite(t, &hits)
	fs := afero.NewMemMapFs()
	manifest := newFakeManifest()

	cfg := DefaultConfig()
	cfg.OutputRoot = "out"
	svc := newTestService(t, fs, cfg, manifest)

	report, err := svc.Run(context.Background(), srv.URL+"/down")
	if err == nil {
		t.Fatal("Run() should fail when the page cannot be fetched")
	}

	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %T %v, want *domain.FetchError", err, err)
	}
	if fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", fe.StatusCode)
	}

	if ok, _ := afero.Exists(fs, filepath.Join("out", "index.html")); ok {
		t.Error("index.html should not be written")
	}
	if len(report.Results) != 0 {
		t.Errorf("Results = %d, want none", len(report.Results))
	}

	run, _ := manifest.GetRun(report.RunID)
	if run == nil || run.Status != domain.RunStatusFailed || run.Error == "" {
		t.Errorf("manifest run = %+v, want failed", run)
	}
}

func TestService_Run_InvalidURL(t *testing.T) {
	svc := newTestService(t, afero.NewMemMapFs(), DefaultConfig(), nil)

	_, err := svc.Run(context.Background(), "ftp://example.com/")
	if !domain.IsFetchError(err) {
		t.Fatalf("error = %v, want FetchError", err)
	}
	if !errors.Is(err, domain.ErrInvalidURL) {
		t.Errorf("error = %v, want ErrInvalidURL", err)
	}
}

func TestService_Run_ManifestFailureIsNotFatal(t *testing.T) {
	var hits sync.Map
	srv := newSite(t, &hits)
	manifest := newFakeManifest()
	manifest.failOn = errors.New("database is locked")

	cfg := DefaultConfig()
	cfg.OutputRoot = "out"
	svc := newTestService(t, afero.NewMemMapFs(), cfg, manifest)

	report, err := svc.Run(context.Background(), srv.URL+"/page/")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Summary.Total() != 4 {
		t.Errorf("Total() = %d, want 4", report.Summary.Total())
	}
}

func TestService_Run_UnwritableOutputRoot(t *testing.T) {
	var hits sync.Map
	srv := newSite(t, &hits)

	cfg := DefaultConfig()
	cfg.OutputRoot = "out"
	svc := newTestService(t, afero.NewReadOnlyFs(afero.NewMemMapFs()), cfg, nil)

	_, err := svc.Run(context.Background(), srv.URL+"/page/")
	if err == nil {
		t.Fatal("Run() should fail when the output root cannot be created")
	}
	if domain.IsFetchError(err) {
		t.Errorf("error = %v, should not be a FetchError", err)
	}
}

func TestReport_View(t *testing.T) {
	ref := domain.AssetReference{URL: "https://ex.com/a.css", Category: domain.CategoryCSS}
	r := &Report{
		RunID:     "id",
		TargetURL: "https://ex.com/",
		Results: []domain.DownloadResult{
			domain.Saved(ref, "out/css/a.css", 10, 200),
			domain.Failed(ref, domain.NewStatusError(ref.URL, 404)),
		},
	}
	r.Summary = domain.Summarize(r.Results)

	v := r.View()
	if v.Saved != 1 || v.Failed != 1 || v.Bytes != 10 {
		t.Errorf("View() counts = %+v", v)
	}
	if len(v.Results) != 2 || v.Results[1].StatusCode != 404 || v.Results[1].Error == "" {
		t.Errorf("View().Results = %+v", v.Results)
	}
}

func TestService_Run_SweepsStaleTempFiles(t *testing.T) {
	var hits sync.Map
	srv := newSite(t, &hits)
	fs := afero.NewMemMapFs()

	stale := filepath.Join("out", "css", ".site.css.42.downloading")
	fresh := filepath.Join("out", "js", ".app.js.43.downloading")
	afero.WriteFile(fs, stale, []byte("partial"), 0644)
	afero.WriteFile(fs, fresh, []byte("partial"), 0644)
	old := time.Now().Add(-2 * time.Hour)
	if err := fs.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.OutputRoot = "out"
	svc := newTestService(t, fs, cfg, nil)

	if _, err := svc.Run(context.Background(), srv.URL+"/page/"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if ok, _ := afero.Exists(fs, stale); ok {
		t.Error("stale temp file should be removed")
	}
	if ok, _ := afero.Exists(fs, fresh); !ok {
		t.Error("recent temp file should be kept")
	}
}
