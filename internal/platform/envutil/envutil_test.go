package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("CDB_INT", "42")
	t.Setenv("CDB_BAD_INT", "x")
	t.Setenv("CDB_BOOL", "on")
	t.Setenv("CDB_DUR", "1500ms")
	t.Setenv("CDB_DUR_SECS", "3")
	t.Setenv("CDB_LIST", " a, ,b ")

	if got := Int("CDB_INT", 1); got != 42 {
		t.Fatalf("Int: got=%d", got)
	}
	if got := Int("CDB_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got=%d", got)
	}
	if !Bool("CDB_BOOL", false) {
		t.Fatalf("Bool: want true")
	}
	if got := Duration("CDB_DUR", 0); got != 1500*time.Millisecond {
		t.Fatalf("Duration: got=%s", got)
	}
	if got := Duration("CDB_DUR_SECS", 0); got != 3*time.Second {
		t.Fatalf("Duration secs: got=%s", got)
	}
	if got := List("CDB_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got=%v", got)
	}
	if got := String("CDB_MISSING", "def"); got != "def" {
		t.Fatalf("String default: got=%s", got)
	}
}
