package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vertextoedge/pagemirror/internal/service/mirror"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><link rel="stylesheet" href="/a.css"></head><body><img src="/gone.png"></body></html>`))
	})
	mux.HandleFunc("/a.css", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("p{}"))
	})
	mux.HandleFunc("/gone.png", http.NotFound)
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_JSON(t *testing.T) {
	srv := newTestSite(t)
	root := t.TempDir()

	out, err := execute(t, srv.URL+"/", "--output", root, "--workers", "2", "--json", "--log-level", "error")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	var view mirror.ReportView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if view.Saved != 1 || view.Failed != 1 {
		t.Errorf("saved=%d failed=%d, want 1 and 1", view.Saved, view.Failed)
	}

	if data, err := os.ReadFile(filepath.Join(root, "css", "a.css")); err != nil || string(data) != "p{}" {
		t.Errorf("a.css = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(root, "index.html")); err != nil {
		t.Errorf("index.html missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".pagemirror.db")); err != nil {
		t.Errorf("manifest missing: %v", err)
	}

	// The recorded run shows up in history
	hist, err := execute(t, "history", "--output", root, "--log-level", "error")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(hist, view.RunID) {
		t.Errorf("history output %q does not list run %s", hist, view.RunID)
	}
}

func TestRootCmd_Summary(t *testing.T) {
	srv := newTestSite(t)
	root := t.TempDir()

	out, err := execute(t, srv.URL+"/", "-o", root, "--manifest=false", "--log-level", "error")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"saved:   1", "failed:  1", "gone.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(root, ".pagemirror.db")); !os.IsNotExist(err) {
		t.Errorf("manifest should not be created, stat error = %v", err)
	}
}

func TestRootCmd_FetchError(t *testing.T) {
	srv := newTestSite(t)

	_, err := execute(t, srv.URL+"/broken", "-o", t.TempDir(), "--log-level", "error")
	if err == nil {
		t.Fatal("execute() should fail when the page cannot be fetched")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %v, want status 500", err)
	}
}

func TestRootCmd_InvalidWorkers(t *testing.T) {
	_, err := execute(t, "https://example.com/", "-o", t.TempDir(), "--workers", "0")
	if err == nil || !strings.Contains(err.Error(), "worker_count") {
		t.Errorf("execute() error = %v, want worker_count validation error", err)
	}
}
