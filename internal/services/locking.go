package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/pkg/ctxutil"
	"github.com/yungbote/conceptdb/internal/platform/locks"
)

const (
	lockKeyUniqueIDs  = "unique-ids"
	lockKeyMappings   = "mappings"
	lockKeyAggregates = "aggregates"

	defaultLockTimeout = 30 * time.Second
)

// batchLockKeys returns the lock keys covering every source and source id a
// batch can read or write: the concepts themselves, their parents, aggregate
// elements and relationship targets. A unique clash merge deletes concepts of
// other sources that share a source id, so every batch touching that id must
// serialize on its sid key.
func batchLockKeys(in domain.ImportConcepts) []string {
	var keys []string
	unique := false
	add := func(c domain.Coordinates) {
		c = c.Normalize()
		if c.Source != "" {
			keys = append(keys, "source:"+c.Source)
		}
		if c.SourceID != "" {
			keys = append(keys, "sid:"+c.SourceID)
		}
		if c.OriginalSource != "" {
			keys = append(keys, "source:"+c.OriginalSource)
		}
		if c.UniqueSourceID {
			unique = true
		}
	}
	for _, ic := range in.Concepts {
		add(ic.Coordinates)
		for _, p := range ic.ParentCoordinates {
			add(p)
		}
		for _, e := range ic.ElementCoordinates {
			add(e)
		}
		for _, r := range ic.Relationships {
			add(r.TargetCoordinates)
		}
	}
	if unique {
		keys = append(keys, lockKeyUniqueIDs)
	}
	if f := in.Facet; f != nil && strings.TrimSpace(f.ID) == "" && strings.TrimSpace(f.Name) != "" {
		keys = append(keys, "facet:"+strings.TrimSpace(f.Name))
	}
	return locks.NormalizeKeys(keys)
}

// acquire takes keys within timeout and reports the wait. A timeout surfaces
// as a conflict error.
func acquire(ctx context.Context, locker locks.Locker, metrics *observability.Metrics, timeout time.Duration, op string, keys ...string) (func(), error) {
	if locker == nil || len(keys) == 0 {
		return func() {}, nil
	}
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	lctx, cancel := context.WithTimeout(ctxutil.Default(ctx), timeout)
	defer cancel()

	start := time.Now()
	release, err := locker.Lock(lctx, keys...)
	status := "acquired"
	if err != nil {
		status = "timeout"
	}
	metrics.ObserveLockWait(op, status, time.Since(start))
	if err != nil {
		if errors.Is(err, locks.ErrLockTimeout) {
			e := domain.NewError(domain.CodeConflict, op, "resources busy", err)
			e.IDs = keys
			return nil, e
		}
		return nil, domain.Wrap(domain.CodeRetryable, op, err)
	}
	return release, nil
}
