package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got := normalize([]string{"requisition:9", "budget:a:2025", "", "budget:a:2025", "pettycash:2025"})
	assert.Equal(t, []string{"budget:a:2025", "pettycash:2025", "requisition:9"}, got)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "budget:math:2025", BudgetKey("math", "2025"))
	assert.Equal(t, "pettycash:2025", PettyCashKey("2025"))
	assert.Equal(t, "requisition:x", RequisitionKey("x"))
}

// exercise runs n goroutines incrementing a counter under overlapping keys and
// fails if two of them were ever inside the critical section together.
func exercise(t *testing.T, l Locker, n int) {
	t.Helper()
	var (
		inside  int32
		overlap int32
		wg      sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		keys := []string{"budget:a:2025", "pettycash:2025"}
		if i%2 == 1 {
			keys = []string{"pettycash:2025", "budget:a:2025"}
		}
		go func(keys []string) {
			defer wg.Done()
			err := l.WithLock(context.Background(), keys, func(context.Context) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}(keys)
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlap))
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	exercise(t, l, 20)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	release := make(chan struct{})
	acquired := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), []string{"k"}, func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := l.WithLock(ctx, []string{"k"}, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	close(release)
}

func TestRedis_MutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, 5*time.Second, nil)
	exercise(t, l, 8)

	assert.False(t, mr.Exists("lock:budget:a:2025"))
}

func TestRedis_PropagatesResult(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, time.Second, nil)
	err := l.WithLock(context.Background(), []string{"requisition:1"}, func(context.Context) error {
		assert.True(t, mr.Exists("lock:requisition:1"))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, mr.Exists("lock:requisition:1"))
}

func TestRedis_ExtendsWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, 300*time.Millisecond, nil)
	err := l.WithLock(context.Background(), []string{"budget:a:2025"}, func(ctx context.Context) error {
		// miniredis only expires keys on FastForward; 750ms in total is well past the ttl
		for i := 0; i < 5; i++ {
			time.Sleep(150 * time.Millisecond)
			mr.FastForward(150 * time.Millisecond)
			require.True(t, mr.Exists("lock:budget:a:2025"), "expired after step %d", i)
		}
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("lock:budget:a:2025"))
}

func TestRedis_LostLockCancelsWork(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, 300*time.Millisecond, nil)
	err := l.WithLock(context.Background(), []string{"pettycash:2025"}, func(ctx context.Context) error {
		mr.Del("lock:pettycash:2025")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockLost)
	assert.ErrorIs(t, err, context.Canceled)
}
