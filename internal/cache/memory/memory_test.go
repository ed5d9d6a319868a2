package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMem(t *testing.T) {
	ctx := context.Background()
	m := New(time.Minute, "t")

	_, err := m.Get(ctx, "k")
	assert.True(t, cache.IsNotFound(err))

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemExpiry(t *testing.T) {
	ctx := context.Background()
	m := New(time.Minute, "")
	require.NoError(t, m.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestTakeJSON(t *testing.T) {
	ctx := context.Background()
	m := New(time.Minute, "")

	type payload struct{ UserID int64 }
	require.NoError(t, cache.SetJSON(ctx, m, "code:x", payload{UserID: 9}, 0))

	var p payload
	require.NoError(t, cache.TakeJSON(ctx, m, "code:x", &p))
	assert.Equal(t, int64(9), p.UserID)

	err := cache.TakeJSON(ctx, m, "code:x", &p)
	assert.ErrorIs(t, err, cache.ErrNotFound, "single use")
}

func TestTake_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := New(time.Minute, "")

	for i := 0; i < 200; i++ {
		require.NoError(t, m.Set(ctx, "code:x", []byte("v"), 0))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.Take(ctx, "code:x"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load(), "iteration %d", i)
	}
}
