package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return writeFile(t, dir, "conceptdb.yaml", `
log:
  mode: production
graph:
  backend: memory
  snapshot_path: `+filepath.Join(dir, "graph.snapshot")+`
history:
  driver: sqlite
  dsn: `+filepath.Join(dir, "history.sqlite")+`
metrics:
  enabled: false
`)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportThenLookupAcrossInvocations(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	batch := writeFile(t, dir, "batch.yaml", `
facet:
  name: Anatomy
concepts:
  - coordinates: {sourceId: C1, source: S1}
    prefName: Heart
  - coordinates: {sourceId: C2, source: S1}
    prefName: Left ventricle
    parentCoordinates:
      - {sourceId: C1, source: S1}
`)

	out, err := run(t, "--config", cfg, "import", batch)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	var imported struct {
		Results []domain.InsertionResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatalf("decode import output: %v\n%s", err, out)
	}
	if len(imported.Results) != 1 || imported.Results[0].CreatedConcepts != 2 {
		t.Fatalf("unexpected import results: %+v", imported.Results)
	}

	out, err = run(t, "--config", cfg, "lookup", "--source-id", "C2", "--source", "S1")
	if err != nil {
		t.Fatalf("lookup: %v\n%s", err, out)
	}
	var view domain.ConceptView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode lookup output: %v\n%s", err, out)
	}
	if view.PrefName != "Left ventricle" {
		t.Fatalf("prefName = %q", view.PrefName)
	}

	out, err = run(t, "--config", cfg, "history", "--kind", "concepts")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"kind": "concepts"`) {
		t.Fatalf("history output missing run:\n%s", out)
	}
}

func TestLookupMissingConceptExitCode(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, "--config", cfg, "lookup", "--source-id", "nope", "--source", "S1")
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	if got := exitCode(err); got != exitError {
		t.Fatalf("exitCode = %d", got)
	}
}

func TestImportRejectsUnknownFields(t *testing.T) {
	cfg := testConfig(t)
	batch := writeFile(t, t.TempDir(), "batch.json", `{"concepts":[],"bogus":1}`)
	_, err := run(t, "--config", cfg, "import", batch)
	var usage *usageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if exitCode(err) != exitValidation {
		t.Fatalf("exitCode = %d", exitCode(err))
	}
}

func TestParseMappingsTSV(t *testing.T) {
	raw := []byte("# id1\tid2\ttype\nC1\tX1\tLOOM\n\nC2\tX2\tSAME_URI\n")
	got, err := parseMappings("maps.tsv", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []domain.IDMapping{
		{ID1: "C1", ID2: "X1", MappingType: "LOOM"},
		{ID1: "C2", ID2: "X2", MappingType: "SAME_URI"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d mappings", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mapping %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, err := parseMappings("maps.tsv", []byte("C1\tX1\n")); err == nil {
		t.Fatal("expected error for short line")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ValidationError("bad"), exitValidation},
		{domain.NewError(domain.CodeConflict, "op", "busy", nil), exitConflict},
		{domain.NewError(domain.CodeAmbiguous, "op", "two", nil), exitConflict},
		{usagef("nope"), exitValidation},
		{errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
