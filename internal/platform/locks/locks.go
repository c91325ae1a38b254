// Package locks serializes writers that touch overlapping resources.
//
// Keys are acquired in sorted order so two callers asking for overlapping key
// sets cannot deadlock each other.
package locks

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrLockTimeout is returned when the keys could not be acquired before the
// context expired.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker acquires exclusive locks on a set of keys. The returned release
// function is idempotent.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}

// NormalizeKeys trims, de-duplicates and sorts keys.
func NormalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
