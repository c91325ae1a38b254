package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := defaultConfig()
	dir := t.TempDir()
	cfg.Graph.SnapshotPath = filepath.Join(dir, "graph.snap")
	cfg.History.DSN = filepath.Join(dir, "history.sqlite")
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func TestAppPersistsEmbeddedGraph(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := NewWithLogger(ctx, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = a.Services.Concepts.ImportConcepts(ctx, domain.ImportConcepts{
		Facet:    &domain.ImportFacet{Name: "Anatomy"},
		Concepts: []domain.ImportConcept{{Coordinates: domain.Coordinates{SourceID: "C1", Source: "S1"}, PrefName: "Heart"}},
	})
	if err != nil {
		t.Fatalf("ImportConcepts: %v", err)
	}
	a.Close(ctx)

	reopened, err := NewWithLogger(ctx, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close(ctx)
	view, err := reopened.Services.Concepts.Lookup(ctx, domain.Coordinates{SourceID: "C1", Source: "S1"})
	if err != nil {
		t.Fatalf("Lookup after reopen: %v", err)
	}
	if view.PrefName != "Heart" {
		t.Fatalf("Lookup after reopen: %+v", view)
	}
	runs, err := reopened.Services.History.ListRecent(ctx, "", 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("history after reopen: runs=%d err=%v", len(runs), err)
	}
}

func TestAppRouterHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	a, err := NewWithLogger(ctx, testConfig(t), logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	r := a.Router()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics: status %d", rec.Code)
	}
}

func TestAppHistoryDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.History.Driver = "none"
	a, err := NewWithLogger(ctx, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)
	if a.DB != nil || a.Repos.ImportRuns != nil {
		t.Fatalf("history should be disabled")
	}
	runs, err := a.Services.History.ListRecent(ctx, "", 10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("ListRecent: runs=%v err=%v", runs, err)
	}
}
