package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_CancelCase_CancelsRegisteredFunc(t *testing.T) {
	p := NewPool(nil, nil, Config{})
	cancelled := false
	ctx, cancel := context.WithCancel(context.Background())
	p.RegisterCase("case-1", func() {
		cancelled = true
		cancel()
	})

	ok := p.CancelCase("case-1")
	assert.True(t, ok)
	assert.True(t, cancelled)
	assert.Error(t, ctx.Err())
}

func TestPool_CancelCase_UnknownCaseReturnsFalse(t *testing.T) {
	p := NewPool(nil, nil, Config{})
	assert.False(t, p.CancelCase("never-registered"))
}

func TestPool_UnregisterCase_RemovesEntry(t *testing.T) {
	p := NewPool(nil, nil, Config{})
	p.RegisterCase("case-1", func() {})
	p.UnregisterCase("case-1")
	assert.False(t, p.CancelCase("case-1"))
}

func TestWorker_PollInterval_NoJitterReturnsBase(t *testing.T) {
	w := &worker{cfg: Config{PollInterval: 2 * time.Second, PollIntervalJitter: 0}}
	assert.Equal(t, 2*time.Second, w.pollInterval())
}

func TestWorker_PollInterval_WithinJitterBounds(t *testing.T) {
	w := &worker{cfg: Config{PollInterval: 2 * time.Second, PollIntervalJitter: 500 * time.Millisecond}}
	for i := 0; i < 50; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}
