// Package event is an in-process event dispatcher. Listeners run inline
// with Fire, or on a bounded worker pool with FireAsync.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/workerpool"
)

// All subscribes a listener to every event.
const All = "*"

// Event is one dispatched occurrence.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

type Handler func(ctx context.Context, e Event)

type Bus struct {
	pool *workerpool.Pool

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus returns a bus. A nil pool makes FireAsync behave like Fire.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{pool: pool, handlers: map[string][]Handler{}}
}

// Listen registers h for name, or for every event when name is All.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) listeners(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, 0, len(b.handlers[name])+len(b.handlers[All]))
	hs = append(hs, b.handlers[name]...)
	return append(hs, b.handlers[All]...)
}

// Fire dispatches synchronously.
func (b *Bus) Fire(ctx context.Context, name string, payload interface{}) {
	e := Event{Name: name, Payload: payload, At: time.Now().UTC()}
	for _, h := range b.listeners(name) {
		run(ctx, h, e)
	}
}

// FireAsync hands each listener to the pool. The request's cancellation
// does not propagate to listeners. A full pool drops the delivery with a
// warning.
func (b *Bus) FireAsync(ctx context.Context, name string, payload interface{}) {
	if b.pool == nil {
		b.Fire(ctx, name, payload)
		return
	}

	e := Event{Name: name, Payload: payload, At: time.Now().UTC()}
	detached := context.WithoutCancel(ctx)

	for _, h := range b.listeners(name) {
		h := h
		err := b.pool.Submit(func() { run(detached, h, e) })
		if err != nil {
			lvl := logger.WithCtx(ctx).Warn
			if errors.Is(err, workerpool.ErrPoolClosed) {
				lvl = logger.WithCtx(ctx).Debug
			}
			lvl("event: listener dropped", "event", name, "error", err)
		}
	}
}

func run(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", e.Name, "error", fmt.Sprintf("%v", r))
		}
	}()
	h(ctx, e)
}
