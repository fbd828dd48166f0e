package kafka

import (
	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/BRO3886/directus-search-sync/internal/queue"
)

type ConsumerGroupHandler struct {
	handler queue.MessageHandler
	log     zerolog.Logger
}

func NewConsumerGroupHandler(handler queue.MessageHandler, logger zerolog.Logger) sarama.ConsumerGroupHandler {
	return &ConsumerGroupHandler{
		handler: handler,
		log:     logger,
	}
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *ConsumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	c.log.Info().Interface("claims", session.Claims()).Msg("session started")
	return nil
}

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *ConsumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim implements sarama.ConsumerGroupHandler. A message that fails
// handling is logged and marked anyway so it cannot stall its partition.
func (c *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log := c.log.With().Str("topic", claim.Topic()).Int32("partition", claim.Partition()).Logger()
	log.Debug().Msg("consuming claim")

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.handle(session, message, log)
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *ConsumerGroupHandler) handle(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("offset", message.Offset).Msg("handler panicked")
		}
	}()
	if err := c.handler(session.Context(), message.Value); err != nil {
		log.Error().Err(err).Int64("offset", message.Offset).Msg("error handling message")
	}
}
