// Package progress logs the advance of long scans at fixed percentage steps.
package progress

import (
	"sync"
	"time"

	"github.com/yungbote/conceptdb/internal/platform/logger"
)

const defaultStep = 10

type Reporter struct {
	mu      sync.Mutex
	log     *logger.Logger
	name    string
	total   int
	done    int
	step    int
	next    int
	started time.Time
}

// New returns a reporter that logs every 10% of total.
func New(log *logger.Logger, name string, total int) *Reporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Reporter{log: log, name: name, total: total, step: defaultStep, next: defaultStep, started: time.Now()}
}

// Add advances the reporter by n and logs each percentage step crossed.
func (r *Reporter) Add(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done += n
	if r.total <= 0 {
		return
	}
	pct := r.done * 100 / r.total
	if pct < r.next {
		return
	}
	for r.next <= pct {
		r.next += r.step
	}
	r.log.Info("progress",
		"task", r.name,
		"done", r.done,
		"total", r.total,
		"percent", min(pct, 100),
		"elapsed_ms", time.Since(r.started).Milliseconds(),
	)
}

// Percent returns the completed share of total.
func (r *Reporter) Percent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total <= 0 {
		return 100
	}
	return min(r.done*100/r.total, 100)
}
