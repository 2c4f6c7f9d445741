package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAwait(t *testing.T) {
	p := NewPool(2)

	ch := Submit(p, func() int { return 42 })
	v, err := Await(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)

	var running, peak atomic.Int32
	block := make(chan struct{})

	var chans []<-chan struct{}
	for i := 0; i < 6; i++ {
		chans = append(chans, Submit(p, func() struct{} {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-block
			running.Add(-1)
			return struct{}{}
		}))
	}

	time.Sleep(50 * time.Millisecond)
	close(block)
	for _, ch := range chans {
		<-ch
	}
	p.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestAwaitDiscardsResultOnAbort(t *testing.T) {
	p := NewPool(1)

	release := make(chan struct{})
	ch := Submit(p, func() string {
		<-release
		return "late"
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Await(ctx, ch)
	assert.ErrorIs(t, err, context.Canceled)

	// The worker finishes after the abort; its result sits in the buffered
	// channel and is never consumed.
	close(release)
	p.Wait()
}
