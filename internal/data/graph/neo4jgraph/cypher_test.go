package neo4jgraph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/conceptdb/internal/data/graph"
)

func TestLabelExpr(t *testing.T) {
	got, err := labelExpr([]string{"CONCEPT", "HOLLOW"})
	if err != nil || got != ":`CONCEPT`:`HOLLOW`" {
		t.Fatalf("labelExpr = %q, %v", got, err)
	}
	if _, err := labelExpr([]string{"x`) DETACH DELETE n //"}); !errors.Is(err, graph.ErrInvalidIdentifier) {
		t.Fatalf("injection not rejected: %v", err)
	}
}

func TestEdgesQuery(t *testing.T) {
	q, params := edgesQuery("4:abc:1", graph.Incoming, []graph.RelType{"IS_BROADER_THAN"})
	if !strings.Contains(q, "(n)<-[r]-()") || !strings.Contains(q, "type(r) IN $types") {
		t.Fatalf("query = %s", q)
	}
	if !reflect.DeepEqual(params["types"], []string{"IS_BROADER_THAN"}) || params["id"] != "4:abc:1" {
		t.Fatalf("params = %v", params)
	}
	q, params = edgesQuery("x", graph.Both, nil)
	if !strings.Contains(q, "(n)-[r]-()") || params["types"] != nil {
		t.Fatalf("both query = %s %v", q, params)
	}
}

func TestFromDriverValue(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{"a", "a"},
		{int64(3), int64(3)},
		{2.0, 2.0},
		{[]any{"a", "b"}, []string{"a", "b"}},
		{[]any{int64(1), int64(2)}, []int64{1, 2}},
		{[]any{int64(1), 2.5}, []float64{1, 2.5}},
		{[]any{true}, []bool{true}},
		{[]any{}, []string{}},
	}
	for _, tc := range cases {
		got, err := fromDriverValue(tc.in)
		if err != nil {
			t.Fatalf("fromDriverValue(%#v): %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("fromDriverValue(%#v) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
	if _, err := fromDriverValue([]any{"a", int64(1)}); !errors.Is(err, graph.ErrInvalidValue) {
		t.Fatalf("mixed list err = %v", err)
	}
}

func TestToDriverValue(t *testing.T) {
	got := toDriverValue([]string{"a"})
	if !reflect.DeepEqual(got, []any{"a"}) {
		t.Fatalf("toDriverValue = %#v", got)
	}
	if toDriverValue("x") != "x" {
		t.Fatal("scalar changed")
	}
}

func TestNodeFromRecord(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"id", "labels", "props"},
		Values: []any{"4:db:7", []any{"CONCEPT"}, map[string]any{"id": "tid1", "synonyms": []any{"x"}}},
	}
	n, err := nodeFromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "4:db:7" || !n.HasLabel("CONCEPT") || n.Props.String("id") != "tid1" {
		t.Fatalf("node = %+v", n)
	}
	if got := n.Props.Strings("synonyms"); len(got) != 1 || got[0] != "x" {
		t.Fatalf("synonyms = %v", got)
	}
}
