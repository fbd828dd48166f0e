package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const clientID = "directus-search-sync"

// Config carries the sarama settings shared by the notification producer
// and the consumer group.
type Config struct {
	sarama  *sarama.Config
	brokers []string
	group   string
}

type Option func(*Config)

// Consumer sets the group the sync worker joins. A group without committed
// offsets starts at the oldest retained notification when fromOldest is set.
func Consumer(group string, fromOldest bool) Option {
	return func(c *Config) {
		c.group = group
		if fromOldest {
			c.sarama.Consumer.Offsets.Initial = sarama.OffsetOldest
		}
	}
}

// Retries applies to publishing and to re-reading a partition after a
// fetch error.
func Retries(maxRetries int, backoff time.Duration) Option {
	return func(c *Config) {
		c.sarama.Producer.Retry.Max = maxRetries
		c.sarama.Producer.Retry.Backoff = backoff
		c.sarama.Consumer.Retry.Backoff = backoff
	}
}

func NewConfig(brokers []string, opts ...Option) (*Config, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	s := sarama.NewConfig()
	s.Version = sarama.V2_8_0_0
	s.ClientID = clientID
	// a notification is only reported as published once every replica has it
	s.Producer.RequiredAcks = sarama.WaitForAll
	s.Producer.Return.Successes = true
	s.Producer.Return.Errors = true
	// keyed by collection, so one collection's notifications stay ordered
	s.Producer.Partitioner = sarama.NewHashPartitioner
	s.Consumer.Return.Errors = true

	c := &Config{sarama: s, brokers: brokers}
	for _, opt := range opts {
		opt(c)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	return c, nil
}

