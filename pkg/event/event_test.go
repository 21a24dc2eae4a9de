package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plantnet/plantnet-server/pkg/event"
	"github.com/plantnet/plantnet-server/pkg/workerpool"
)

func TestFireDeliversToNamedAndWildcard(t *testing.T) {
	bus := event.NewBus(nil)

	var got []string
	bus.Listen("order.placed", func(_ context.Context, e event.Event) { got = append(got, "named:"+e.Name) })
	bus.Listen(event.All, func(_ context.Context, e event.Event) { got = append(got, "all:"+e.Name) })

	bus.Fire(context.Background(), "order.placed", nil)
	bus.Fire(context.Background(), "stock.updated", nil)

	assert.Equal(t, []string{"named:order.placed", "all:order.placed", "all:stock.updated"}, got)
}

func TestFireRecoversPanickingListener(t *testing.T) {
	bus := event.NewBus(nil)
	called := false
	bus.Listen("x", func(context.Context, event.Event) { panic("bad listener") })
	bus.Listen("x", func(context.Context, event.Event) { called = true })

	assert.NotPanics(t, func() { bus.Fire(context.Background(), "x", nil) })
	assert.True(t, called)
}

func TestFireAsyncSurvivesRequestCancel(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()
	bus := event.NewBus(pool)

	var wg sync.WaitGroup
	wg.Add(1)
	var ctxErr error
	bus.Listen("payment.confirmed", func(ctx context.Context, e event.Event) {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		ctxErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.FireAsync(ctx, "payment.confirmed", map[string]string{"transactionId": "pi_1"})
	cancel()

	wg.Wait()
	assert.NoError(t, ctxErr)
}
