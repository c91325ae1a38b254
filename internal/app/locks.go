package app

import (
	"context"

	"github.com/yungbote/conceptdb/internal/platform/locks"
	"github.com/yungbote/conceptdb/internal/platform/redisdb"
)

// openLocker uses redis when an address is configured, else an in-process locker.
func (a *App) openLocker(ctx context.Context) error {
	rdb, err := redisdb.New(ctx, a.Log, a.Cfg.Redis.Addr, a.Cfg.Redis.Password)
	if err != nil {
		return err
	}
	if rdb == nil {
		a.Locker = locks.NewLocal()
		return nil
	}
	a.Redis = rdb
	a.Locker = locks.NewRedis(rdb, a.Log, a.Cfg.Redis.LockTTL.Duration)
	return nil
}
