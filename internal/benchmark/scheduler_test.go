package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type refreshFunc func(ctx context.Context) RefreshResult

func (f refreshFunc) Refresh(ctx context.Context) RefreshResult { return f(ctx) }

func TestScheduler_RunsOnStartAndOnTick(t *testing.T) {
	calls := make(chan struct{}, 10)
	r := refreshFunc(func(ctx context.Context) RefreshResult {
		calls <- struct{}{}
		return RefreshResult{}
	})

	s := NewScheduler(r, 20*time.Millisecond, true, zap.NewNop())
	s.Start()

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("refresh %d did not run", i+1)
		}
	}
	s.Stop()
}

func TestScheduler_StopCancelsInFlightRefresh(t *testing.T) {
	started := make(chan struct{})
	r := refreshFunc(func(ctx context.Context) RefreshResult {
		close(started)
		<-ctx.Done()
		return RefreshResult{}
	})

	s := NewScheduler(r, time.Hour, true, zap.NewNop())
	s.Start()
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running refresh")
	}
	assert.NotPanics(t, s.Stop)
}
