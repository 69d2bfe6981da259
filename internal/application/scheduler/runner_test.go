package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	calls   atomic.Int32
	process func() *Report
	next    time.Time
}

func (p *countingProcessor) ProcessDue(context.Context, int) (*Report, error) {
	p.calls.Add(1)
	if p.process != nil {
		return p.process(), nil
	}
	return &Report{}, nil
}

func (p *countingProcessor) NextDue(context.Context) (time.Time, bool, error) {
	return p.next, !p.next.IsZero(), nil
}

func TestRunner_RunsImmediatelyAndOnRefresh(t *testing.T) {
	p := &countingProcessor{}
	r := NewRunner(p, time.Hour, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	r.Refresh()
	require.Eventually(t, func() bool { return p.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_TickWaits(t *testing.T) {
	p := &countingProcessor{}
	r := NewRunner(p, time.Minute, 10, nil)

	assert.Equal(t, time.Minute, r.tick(context.Background()))

	p.process = func() *Report { return &Report{Processed: 10} }
	assert.Equal(t, time.Duration(0), r.tick(context.Background()))

	p.process = nil
	p.next = time.Now().Add(10 * time.Second)
	wait := r.tick(context.Background())
	assert.True(t, wait > 0 && wait <= 10*time.Second)

	p.next = time.Now().Add(-time.Second)
	assert.Equal(t, time.Minute, r.tick(context.Background()))
}
