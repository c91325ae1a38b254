package locks

import (
	"context"
	"sync"
)

// Local is an in-process Locker. One buffered channel per key acts as a
// context-aware mutex.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	keys = NormalizeKeys(keys)
	held := make([]chan struct{}, 0, len(keys))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
		held = nil
	}
	for _, k := range keys {
		ch := l.slot(k)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			releaseAll()
			return nil, ErrLockTimeout
		}
	}
	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
