// Package listeners subscribes the event sinks to the domain event bus:
// the live order feed, the Kafka topics and the receipt queue.
package listeners

import (
	"context"
	"encoding/json"

	"github.com/plantnet/plantnet-server/app/events"
	"github.com/plantnet/plantnet-server/app/jobs"
	"github.com/plantnet/plantnet-server/pkg/event"
	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/metrics"
	"github.com/plantnet/plantnet-server/pkg/queue"
)

// Broadcaster is the websocket hub.
type Broadcaster interface {
	Publish(msg []byte) bool
}

// Broker is the Kafka publisher.
type Broker interface {
	Publish(ctx context.Context, name, key string, payload interface{}) error
}

// Dispatcher is the job queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// Sinks are the optional event consumers. Nil sinks are skipped.
type Sinks struct {
	Hub    Broadcaster
	Broker Broker
	Queue  Dispatcher
}

// Register subscribes every configured sink on bus.
func Register(bus *event.Bus, s Sinks) {
	if s.Hub != nil {
		bus.Listen(event.All, Broadcast(s.Hub))
	}
	if s.Broker != nil {
		bus.Listen(event.All, Forward(s.Broker))
	}
	if s.Queue != nil {
		bus.Listen(events.PaymentConfirmed, QueueReceipt(s.Queue))
	}
}

// Broadcast pushes every event to the websocket feed as
// {"event", "payload", "at"}.
func Broadcast(hub Broadcaster) event.Handler {
	return func(ctx context.Context, e event.Event) {
		msg, err := json.Marshal(e)
		if err != nil {
			logger.WithCtx(ctx).Error("listeners: encode event", "event", e.Name, "error", err)
			return
		}
		status := "ok"
		if !hub.Publish(msg) {
			status = "dropped"
			logger.WithCtx(ctx).Warn("listeners: websocket feed full, event dropped", "event", e.Name)
		}
		metrics.EventsPublished.WithLabelValues("websocket", e.Name, status).Inc()
	}
}

// Forward publishes every event on its Kafka topic, keyed by the entity
// it concerns.
func Forward(b Broker) event.Handler {
	return func(ctx context.Context, e event.Event) {
		if err := b.Publish(ctx, e.Name, events.Key(e.Payload), e.Payload); err != nil {
			logger.WithCtx(ctx).Error("listeners: kafka publish failed", "event", e.Name, "error", err)
		}
	}
}

// QueueReceipt queues the receipt mail of a confirmed payment.
func QueueReceipt(q Dispatcher) event.Handler {
	return func(ctx context.Context, e event.Event) {
		p, ok := e.Payload.(events.PaymentConfirmedPayload)
		if !ok {
			return
		}
		if err := q.Dispatch(ctx, jobs.NewPaymentReceipt(p.PaymentIntentID)); err != nil {
			logger.WithCtx(ctx).Error("listeners: receipt dispatch failed", "intent", p.PaymentIntentID, "error", err)
			return
		}
		metrics.EventsPublished.WithLabelValues("queue", e.Name, "ok").Inc()
	}
}
