package progress

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/conceptdb/internal/platform/logger"
)

func TestReporterLogsEveryTenPercent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := New(log, "scan", 100)
	for i := 0; i < 100; i++ {
		r.Add(1)
	}
	if got := logs.FilterMessage("progress").Len(); got != 10 {
		t.Fatalf("progress lines: want=10 got=%d", got)
	}
	if r.Percent() != 100 {
		t.Fatalf("percent: %d", r.Percent())
	}
}

func TestReporterLargeStepsLogOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := New(log, "scan", 10)
	r.Add(10)
	if got := logs.FilterMessage("progress").Len(); got != 1 {
		t.Fatalf("progress lines: want=1 got=%d", got)
	}
}

func TestReporterZeroTotal(t *testing.T) {
	r := New(nil, "empty", 0)
	r.Add(5)
	if r.Percent() != 100 {
		t.Fatalf("percent: %d", r.Percent())
	}
}
