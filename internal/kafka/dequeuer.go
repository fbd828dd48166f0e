package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/queue"
)

type KafkaDequeuer struct {
	group sarama.ConsumerGroup
	log   zerolog.Logger
}

func NewDequeuer(c *Config, logger zerolog.Logger) (queue.Dequeuer, error) {
	if c.group == "" {
		return nil, errors.New("kafka consumer group is empty")
	}
	group, err := sarama.NewConsumerGroup(c.brokers, c.group, c.sarama)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group %s: %w", c.group, err)
	}
	return &KafkaDequeuer{
		group: group,
		log:   logging.Component(logger, "kafka"),
	}, nil
}

func (k *KafkaDequeuer) Dequeue(ctx context.Context, topic string, handler queue.MessageHandler) error {
	go func() {
		for err := range k.group.Errors() {
			k.log.Error().Err(err).Str("topic", topic).Msg("consumer group error")
		}
	}()

	h := NewConsumerGroupHandler(handler, k.log)
	// Consume returns on every rebalance and has to be called again.
	for {
		if err := k.group.Consume(ctx, []string{topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consuming %s: %w", topic, err)
		}
		if ctx.Err() != nil {
			return nil
		}
		k.log.Info().Str("topic", topic).Msg("rebalanced, rejoining")
	}
}

func (k *KafkaDequeuer) Close() error {
	return k.group.Close()
}
