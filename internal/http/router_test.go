package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/conceptdb/internal/data/concepts"
	"github.com/yungbote/conceptdb/internal/data/graph/memgraph"
	importrepo "github.com/yungbote/conceptdb/internal/data/repos/imports"
	"github.com/yungbote/conceptdb/internal/data/repos/testutil"
	httpH "github.com/yungbote/conceptdb/internal/http/handlers"
	httpMW "github.com/yungbote/conceptdb/internal/http/middleware"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/platform/logger"
	"github.com/yungbote/conceptdb/internal/services"
)

func newTestRouter(t *testing.T, jwtSecret string) (*gin.Engine, services.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	store := memgraph.New()
	metrics := observability.New()
	deps := concepts.BaseDeps{Store: store, Log: log, Hooks: concepts.NewObservabilityHooks(metrics)}
	runs := importrepo.NewImportRunRepo(testutil.DB(t), log)
	tokens := services.NewTokenService(log, jwtSecret)

	conceptSvc := services.NewConceptService(log, services.ConceptServiceDeps{
		Writer: concepts.NewWriter(deps), Runs: runs, Metrics: metrics,
	})
	aggregateSvc := services.NewAggregateService(log, services.AggregateServiceDeps{
		Aggregates: concepts.NewAggregates(deps), Runs: runs, Metrics: metrics,
	})
	r := NewRouter(RouterConfig{
		Log:              log,
		Metrics:          metrics,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, tokens),
		RequestTimeout:   5 * time.Second,
		HealthHandler:    httpH.NewHealthHandler(nil),
		ConceptHandler:   httpH.NewConceptHandler(log, conceptSvc),
		AggregateHandler: httpH.NewAggregateHandler(log, aggregateSvc),
		ImportHandler:    httpH.NewImportHandler(services.NewImportHistory(runs, log)),
	})
	return r, tokens
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec, out
}

func errorCode(body map[string]any) string {
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

var importBody = map[string]any{
	"facet": map[string]any{"name": "Anatomy"},
	"concepts": []map[string]any{
		{"coordinates": map[string]any{"sourceId": "C1", "source": "S1"}, "prefName": "Heart"},
		{
			"coordinates":       map[string]any{"sourceId": "C2", "source": "S1"},
			"prefName":          "Cardiac ventricle",
			"parentCoordinates": []map[string]any{{"sourceId": "C1", "source": "S1"}},
		},
		{"coordinates": map[string]any{"sourceId": "X1", "source": "S2"}, "prefName": "heart"},
	},
}

func TestConceptRoutes(t *testing.T) {
	r, _ := newTestRouter(t, "")

	rec, body := do(t, r, http.MethodPost, "/api/concepts", importBody, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("import: status %d body %s", rec.Code, rec.Body.String())
	}
	result := body["result"].(map[string]any)
	if result["createdConcepts"].(float64) != 3 {
		t.Fatalf("import result: %v", result)
	}

	rec, body = do(t, r, http.MethodGet, "/api/concepts/lookup?sourceId=C2&source=S1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: status %d", rec.Code)
	}
	concept := body["concept"].(map[string]any)
	if concept["prefName"] != "Cardiac ventricle" {
		t.Fatalf("lookup: %v", concept)
	}
	c1ID := func() string {
		_, b := do(t, r, http.MethodGet, "/api/concepts/lookup?sourceId=C1&source=S1", nil, "")
		return b["concept"].(map[string]any)["id"].(string)
	}()

	tests := []struct {
		path string
		want int
		code string
	}{
		{path: "/api/concepts/lookup?sourceId=nope&source=S1", want: http.StatusNotFound, code: "not_found"},
		{path: "/api/concepts/lookup?originalId=O1", want: http.StatusBadRequest, code: "validation"},
		{path: "/api/concepts/lookup?sourceId=C1&source=S1&uniqueSourceId=maybe", want: http.StatusBadRequest, code: "invalid_unique_source_id"},
	}
	for _, tt := range tests {
		rec, body := do(t, r, http.MethodGet, tt.path, nil, "")
		if rec.Code != tt.want || errorCode(body) != tt.code {
			t.Fatalf("%s: status %d code %q", tt.path, rec.Code, errorCode(body))
		}
	}

	rec, body = do(t, r, http.MethodPost, "/api/mappings", map[string]any{
		"mappings": []map[string]any{{"id1": "C1", "id2": "X1", "mappingType": "EXACT"}},
	}, "")
	if rec.Code != http.StatusOK || body["created"].(float64) != 1 {
		t.Fatalf("mappings: status %d body %v", rec.Code, body)
	}

	rec, body = do(t, r, http.MethodPost, "/api/variants", map[string]any{
		"variants": []map[string]any{{"conceptId": c1ID, "type": "acronyms", "counts": map[string]int{"HRT": 2}}},
	}, "")
	if rec.Code != http.StatusOK || body["updated"].(float64) != 1 {
		t.Fatalf("variants: status %d body %v", rec.Code, body)
	}

	rec, body = do(t, r, http.MethodPost, "/api/concepts", "{not json", "")
	if rec.Code != http.StatusBadRequest || errorCode(body) != "invalid_request" {
		t.Fatalf("bad json: status %d code %q", rec.Code, errorCode(body))
	}

	rec, body = do(t, r, http.MethodGet, "/api/imports?kind=concepts", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("imports: status %d", rec.Code)
	}
	if runs := body["imports"].([]any); len(runs) != 1 {
		t.Fatalf("imports: expected 1 concept run, got %d", len(runs))
	}
	if rec, _ := do(t, r, http.MethodGet, "/api/imports?limit=0", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("imports limit=0: status %d", rec.Code)
	}
}

func TestAggregateRoutes(t *testing.T) {
	r, _ := newTestRouter(t, "")
	if rec, _ := do(t, r, http.MethodPost, "/api/concepts", importBody, ""); rec.Code != http.StatusOK {
		t.Fatalf("import: status %d", rec.Code)
	}

	rec, body := do(t, r, http.MethodPost, "/api/aggregates/names", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("names: status %d body %s", rec.Code, rec.Body.String())
	}
	if agg := body["result"].(map[string]any)["aggregates"].(float64); agg != 1 {
		t.Fatalf("names: aggregates %v", agg)
	}

	rec, body = do(t, r, http.MethodPost, "/api/aggregates/assemble", nil, "")
	if rec.Code != http.StatusOK || body["assembled"].(float64) != 1 {
		t.Fatalf("assemble: status %d body %v", rec.Code, body)
	}

	rec, body = do(t, r, http.MethodDelete, "/api/aggregates/AGGREGATE_EQUAL_NAMES", nil, "")
	if rec.Code != http.StatusOK || body["deleted"].(float64) != 1 {
		t.Fatalf("delete: status %d body %v", rec.Code, body)
	}

	rec, body = do(t, r, http.MethodDelete, "/api/aggregates/bad-label", nil, "")
	if rec.Code != http.StatusBadRequest || errorCode(body) != "validation" {
		t.Fatalf("delete bad label: status %d code %q", rec.Code, errorCode(body))
	}

	rec, body = do(t, r, http.MethodPost, "/api/aggregates/mapping", map[string]any{"resultLabel": "MAPPED"}, "")
	if rec.Code != http.StatusBadRequest || errorCode(body) != "validation" {
		t.Fatalf("mapping without types: status %d code %q", rec.Code, errorCode(body))
	}
}

func TestMutationsRequireTokenWhenConfigured(t *testing.T) {
	r, tokens := newTestRouter(t, "s3cret")

	if rec, body := do(t, r, http.MethodPost, "/api/concepts", importBody, ""); rec.Code != http.StatusUnauthorized || errorCode(body) != "unauthorized" {
		t.Fatalf("anonymous import: status %d", rec.Code)
	}
	tok, err := tokens.Issue("curator", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if rec, _ := do(t, r, http.MethodPost, "/api/concepts", importBody, tok); rec.Code != http.StatusOK {
		t.Fatalf("authorized import: status %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, "/api/concepts/lookup?sourceId=C1&source=S1", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("lookup stays public: status %d", rec.Code)
	}

	_, body := do(t, r, http.MethodGet, "/api/imports", nil, "")
	run := body["imports"].([]any)[0].(map[string]any)
	if run["caller"] != "curator" || run["request_id"] == "" {
		t.Fatalf("run not attributed: %v", run)
	}
}

func TestProbesAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, "")
	if rec, _ := do(t, r, http.MethodGet, "/healthcheck", nil, ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: status %d body %q", rec.Code, rec.Body.String())
	}
	do(t, r, http.MethodPost, "/api/concepts", importBody, "")
	rec, _ := do(t, r, http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "conceptdb_created_concepts_total") {
		t.Fatalf("metrics: status %d", rec.Code)
	}
	if rec, body := do(t, r, http.MethodGet, "/api/unknown", nil, ""); rec.Code != http.StatusNotFound || errorCode(body) != "not_found" {
		t.Fatalf("no route: status %d", rec.Code)
	}
}
