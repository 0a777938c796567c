package remote

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Disabled(t *testing.T) {
	r := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Wait(context.Background()))
	}
	assert.Equal(t, -1, r.Status())
}

func TestRateLimiter_MinInterval(t *testing.T) {
	r := NewRateLimiter(1200) // 50ms apart

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	require.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
	assert.Equal(t, 1198, r.Status())
}

func TestRateLimiter_CancelWhileWaiting(t *testing.T) {
	r := NewRateLimiter(1) // one request per minute
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_UpdateFromHeaders(t *testing.T) {
	r := NewRateLimiter(60)

	h := http.Header{}
	h.Set("X-RateLimit-Limit", "100")
	h.Set("X-RateLimit-Remaining", "25")
	r.UpdateFromHeaders(h)
	assert.Equal(t, 25, r.Status())

	// Garbage headers are ignored
	h.Set("X-RateLimit-Remaining", "lots")
	r.UpdateFromHeaders(h)
	assert.Equal(t, 25, r.Status())
}
