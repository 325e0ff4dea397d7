package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix   = "lock:"
	defaultLockTTL   = 10 * time.Second
	defaultTries     = 64
	defaultRetryWait = 50 * time.Millisecond
)

// ErrLockLost is the cancellation cause given to fn when a held lock could not be
// extended and another instance may now own it.
var ErrLockLost = errors.New("lock lost before the operation finished")

// Redis coordinates several service instances through redsync mutexes. Held
// mutexes are extended every ttl/3 until fn returns.
type Redis struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		logger: logger,
	}
}

func (r *Redis) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = normalize(keys)
	held := make([]*redsync.Mutex, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			m := held[i]
			// a fresh context: the caller's may already be cancelled
			uctx, cancel := context.WithTimeout(context.Background(), r.ttl)
			if ok, err := m.UnlockContext(uctx); !ok || err != nil {
				r.logger.Warn("release lock failed",
					zap.String("key", m.Name()), zap.Bool("released", ok), zap.Error(err))
			}
			cancel()
		}
	}()

	for _, k := range keys {
		m := r.rs.NewMutex(redisKeyPrefix+k,
			redsync.WithExpiry(r.ttl),
			redsync.WithTries(defaultTries),
			redsync.WithRetryDelay(defaultRetryWait),
		)
		if err := m.LockContext(ctx); err != nil {
			return fmt.Errorf("acquire lock %s: %w", k, err)
		}
		held = append(held, m)
	}

	fctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.keepAlive(fctx, held, cancel, stop)
	}()

	err := fn(fctx)
	close(stop)
	wg.Wait()
	if cause := context.Cause(fctx); err != nil && errors.Is(cause, ErrLockLost) {
		return errors.Join(err, cause)
	}
	return err
}

// keepAlive extends every held mutex until stop closes. A failed extension
// cancels ctx with ErrLockLost.
func (r *Redis) keepAlive(ctx context.Context, held []*redsync.Mutex, lost context.CancelCauseFunc, stop <-chan struct{}) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, m := range held {
				if ok, err := m.ExtendContext(ctx); !ok || err != nil {
					r.logger.Error("extend lock failed",
						zap.String("key", m.Name()), zap.Bool("extended", ok), zap.Error(err))
					lost(fmt.Errorf("%w: %s", ErrLockLost, m.Name()))
					return
				}
			}
		}
	}
}
