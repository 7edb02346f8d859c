package governor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_Serializes(t *testing.T) {
	l := NewLocalLocker()
	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "u1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
	assert.Empty(t, l.slots)
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "u2")
	require.NoError(t, err)
	other()
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLocker(client, "test:", time.Second, 50*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:u1"))

	_, err = l.Lock(context.Background(), "u1")
	assert.True(t, errors.Is(err, ErrLockTimeout))

	unlock()
	assert.False(t, mr.Exists("test:u1"))

	unlock2, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLocker(client, "test:", time.Second, 50*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	// Lease expired and another holder took it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:u1", "someone-else"))

	unlock()
	v, err := mr.Get("test:u1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLocker_Unavailable(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()
	l := NewRedisLocker(client, "test:", time.Second, 50*time.Millisecond)
	_, err := l.Lock(context.Background(), "u1")
	assert.Error(t, err)
}
