package codecache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestTwoFactorKey(t *testing.T) {
	assert.Equal(t, "2fa:code:ann@example.com", TwoFactorKey("ann@example.com"))
}

func TestSetGetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := TwoFactorKey("ann@example.com")

	require.NoError(t, c.Set(ctx, key, "123456", 600*time.Second))
	assert.Equal(t, 600*time.Second, mr.TTL(key))

	v, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "123456", v)

	deleted, err := c.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete finds nothing")

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSet_OverwritesAndResetsTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "111111", time.Minute))
	mr.FastForward(30 * time.Second)
	require.NoError(t, c.Set(ctx, "k", "222222", time.Minute))

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "222222", v)
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestGet_Expired(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 600*time.Second))
	mr.FastForward(601 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_SingleWinnerUnderConcurrency(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Delete(ctx, "k")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestBackendErrors(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "k", "v", time.Minute), ErrBackend)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrBackend)
	_, err = c.Delete(ctx, "k")
	assert.ErrorIs(t, err, ErrBackend)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	require.ErrorContains(t, err, "parse redis url")
}
