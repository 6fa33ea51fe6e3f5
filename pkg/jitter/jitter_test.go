package jitter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_CapsAtMax(t *testing.T) {
	got := ExponentialBackoff(10*time.Millisecond, 40*time.Millisecond, 10, 0)
	assert.Equal(t, 40*time.Millisecond, got)
}

func TestExponentialBackoff_Doubles(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, ExponentialBackoff(10*time.Millisecond, time.Second, 0, 0))
	assert.Equal(t, 40*time.Millisecond, ExponentialBackoff(10*time.Millisecond, time.Second, 2, 0))
}

func TestDuration_WithinRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Duration(100*time.Millisecond, DefaultJitter)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
