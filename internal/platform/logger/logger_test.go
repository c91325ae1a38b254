package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar(), redact: true}

	l.Info("connect", "neo4j_password", "hunter2", "uri", "bolt://localhost:7687")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["neo4j_password"] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", fields["neo4j_password"])
	}
	if fields["uri"] != "bolt://localhost:7687" {
		t.Fatalf("uri altered: %v", fields["uri"])
	}
}

func TestWithoutRedactionKeepsValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := (&Logger{SugaredLogger: zap.New(core).Sugar(), redact: true}).WithoutRedaction()

	l.Debug("raw", "api_token", "abc")

	if got := logs.All()[0].ContextMap()["api_token"]; got != "abc" {
		t.Fatalf("token: want=abc got=%v", got)
	}
}
