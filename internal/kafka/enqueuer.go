package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/queue"
)

type KafkaEnqueuer struct {
	producer sarama.SyncProducer
	log      zerolog.Logger
}

func NewEnqueuer(c *Config, logger zerolog.Logger) (queue.Enqueuer, error) {
	producer, err := sarama.NewSyncProducer(c.brokers, c.sarama)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return newEnqueuer(producer, logger), nil
}

func newEnqueuer(producer sarama.SyncProducer, logger zerolog.Logger) *KafkaEnqueuer {
	return &KafkaEnqueuer{
		producer: producer,
		log:      logging.Component(logger, "kafka"),
	}
}

func (k *KafkaEnqueuer) Enqueue(ctx context.Context, topic string, key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", topic, err)
	}
	k.log.Debug().
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("message sent")
	return nil
}

func (k *KafkaEnqueuer) Close() error {
	return k.producer.Close()
}
