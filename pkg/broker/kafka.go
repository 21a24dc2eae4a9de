// Package broker publishes domain events to Kafka.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// TopicPrefix is prepended to event names: payment.confirmed is published
// on plantnet.payment.confirmed.
const TopicPrefix = "plantnet."

type KafkaPublisher struct {
	producer sarama.SyncProducer
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "plantnet-server"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_8_0_0
	return cfg
}

// Dial connects to brokers, retrying while the cluster comes up.
func Dial(ctx context.Context, brokers []string, attempts int, wait time.Duration) (*KafkaPublisher, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		var p sarama.SyncProducer
		p, err = sarama.NewSyncProducer(brokers, producerConfig())
		if err == nil {
			logger.Info("broker: kafka producer ready", "brokers", brokers)
			return NewKafkaPublisher(p), nil
		}

		logger.Warn("broker: waiting for kafka", "attempt", i, "of", attempts, "error", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("broker: kafka unavailable after %d attempts: %w", attempts, err)
}

func NewKafkaPublisher(p sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

// Publish sends payload as JSON on the event's topic, keyed so every
// message about one aggregate lands on the same partition.
func (k *KafkaPublisher) Publish(ctx context.Context, name, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal %s: %w", name, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     TopicPrefix + name,
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		metrics.EventsPublished.WithLabelValues("kafka", name, "failed").Inc()
		return fmt.Errorf("broker: send %s: %w", name, err)
	}

	metrics.EventsPublished.WithLabelValues("kafka", name, "ok").Inc()
	logger.WithCtx(ctx).Debug("broker: published", "topic", msg.Topic, "partition", partition, "offset", offset)
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
