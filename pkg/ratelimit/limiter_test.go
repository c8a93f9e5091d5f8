package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurst(t *testing.T) {
	l := NewPerMinute(60, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()), "token %d should be available", i+1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx), "burst should be exhausted")
}

func TestTokenBucketInterval(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, NewPerMinute(300, 1).Interval())
	assert.Equal(t, time.Minute, NewPerMinute(1, 0).Interval())
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	l := NewPerMinute(1, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err, "next token is a minute away, wait must give up with the context")
}

func TestUnlimited(t *testing.T) {
	l := NewPerMinute(0, 0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Zero(t, l.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
