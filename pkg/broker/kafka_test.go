package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/pkg/broker"
)

func TestPublishEncodesJSON(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)

	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "plantnet.payment.confirmed" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "pi_1" {
			return errors.New("wrong key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			return err
		}
		if body["transactionId"] != "pi_1" {
			return errors.New("payload not encoded")
		}
		return nil
	})

	pub := broker.NewKafkaPublisher(mp)
	defer pub.Close()

	err := pub.Publish(context.Background(), "payment.confirmed", "pi_1", map[string]string{"transactionId": "pi_1"})
	require.NoError(t, err)
}

func TestPublishSurfacesBrokerError(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	pub := broker.NewKafkaPublisher(mp)
	defer pub.Close()

	err := pub.Publish(context.Background(), "stock.updated", "", map[string]int{"delta": -1})
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
}

func TestDialGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := broker.Dial(ctx, []string{"127.0.0.1:1"}, 3, 0)
	assert.Error(t, err)
}
