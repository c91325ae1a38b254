package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/conceptdb/internal/platform/logger"
)

// releaseScript deletes the key only when it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared between processes. Each key is a SET NX PX entry
// holding a random token; TTL bounds how long a crashed holder blocks others.
type Redis struct {
	rdb    goredis.UniversalClient
	log    *logger.Logger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedis(rdb goredis.UniversalClient, log *logger.Logger, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{
		rdb:    rdb,
		log:    log.With("locker", "RedisLocker"),
		prefix: "conceptdb:lock:",
		ttl:    ttl,
		retry:  50 * time.Millisecond,
	}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	keys = NormalizeKeys(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	releaseAll := func() {
		// Release must not depend on the caller's context, which may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(rctx, r.rdb, []string{r.key(held[i])}, token).Err(); err != nil {
				r.log.Warn("redis lock release failed", "key", held[i], "error", err)
			}
		}
		held = nil
	}

	for _, k := range keys {
		for {
			ok, err := r.rdb.SetNX(ctx, r.key(k), token, r.ttl).Result()
			if err != nil {
				releaseAll()
				return nil, fmt.Errorf("redis lock %q: %w", k, err)
			}
			if ok {
				held = append(held, k)
				break
			}
			select {
			case <-time.After(r.retry):
			case <-ctx.Done():
				releaseAll()
				return nil, ErrLockTimeout
			}
		}
	}
	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
