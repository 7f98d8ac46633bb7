package papersources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	t.Run("allows burst then denies", func(t *testing.T) {
		rl := NewRateLimiter(3, 3)

		require.NotNil(t, rl)
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow(), "should allow request %d within burst", i+1)
		}
		assert.False(t, rl.Allow())
	})

	t.Run("fractional rate", func(t *testing.T) {
		rl := NewRateLimiter(0.5, 1)

		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("burst allows instant requests", func(t *testing.T) {
		rl := NewRateLimiter(100, 5)

		start := time.Now()
		for i := 0; i < 5; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("waits for token after burst exhausted", func(t *testing.T) {
		rl := NewRateLimiter(10, 1)
		require.NoError(t, rl.Wait(context.Background()))

		start := time.Now()
		require.NoError(t, rl.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("respects context deadline", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		assert.True(t, rl.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		// rate.Limiter reports "would exceed context deadline" rather than
		// context.DeadlineExceeded.
		err := rl.Wait(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deadline")
	})

	t.Run("returns immediately with canceled context", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		assert.True(t, rl.Allow())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := rl.Wait(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	rl.SetRate(1000)
	time.Sleep(5 * time.Millisecond)

	assert.True(t, rl.Allow())
}

func TestRateLimiter_Tokens(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	assert.InDelta(t, 5.0, rl.Tokens(), 0.1)

	rl.Allow()
	rl.Allow()
	assert.InDelta(t, 3.0, rl.Tokens(), 0.1)
}

func TestRateLimiter_Concurrency(t *testing.T) {
	rl := NewRateLimiter(1000, 100)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := rl.Wait(context.Background()); err != nil {
					errs <- err
					return
				}
				rl.Allow()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error during concurrent access: %v", err)
	}
}
