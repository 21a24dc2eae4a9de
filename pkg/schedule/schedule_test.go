package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/schedule"
)

func TestEveryRunsRepeatedly(t *testing.T) {
	s := schedule.New()
	s.SetTick(5 * time.Millisecond)

	var runs atomic.Int32
	s.Every(10 * time.Millisecond).Name("tick").Run(func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Start(ctx); close(done) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestWithoutOverlapping(t *testing.T) {
	s := schedule.New()
	s.SetTick(2 * time.Millisecond)

	var active, maxActive atomic.Int32
	s.Every(time.Millisecond).WithoutOverlapping().Run(func(context.Context) error {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestRunNow(t *testing.T) {
	s := schedule.New()
	s.Every(time.Hour).Name("orders:stale-pending").Run(func(context.Context) error { return errors.New("boom") })

	assert.Equal(t, []string{"orders:stale-pending"}, s.Names())
	assert.EqualError(t, s.RunNow(context.Background(), "orders:stale-pending"), "boom")
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}
