package watermilldb

import (
	"context"
	"fmt"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	log "github.com/sirupsen/logrus"
)

const outputChannelBuffer = 64

// EventRepository decorates a raffle event store by publishing every saved
// event to the raffle topic, where any number of subscribers can listen.
type EventRepository interface {
	domain.RaffleEventRepository
	ports.EventBus
}

type eventRepository struct {
	domain.RaffleEventRepository
	pubsub *gochannel.GoChannel
}

func NewWatermillEventRepository(
	store domain.RaffleEventRepository, logger watermill.LoggerAdapter,
) EventRepository {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: outputChannelBuffer}, logger,
	)
	return &eventRepository{store, pubsub}
}

func (e *eventRepository) Save(
	ctx context.Context, id string, events ...domain.RaffleEvent,
) (*domain.Raffle, error) {
	raffle, err := e.RaffleEventRepository.Save(ctx, id, events...)
	if err != nil {
		return nil, err
	}

	if err := e.publish(events); err != nil {
		log.WithError(err).Warnf("failed to publish events of raffle %s", id)
	}
	return raffle, nil
}

func (e *eventRepository) Subscribe(ctx context.Context) (<-chan domain.RaffleEvent, error) {
	messages, err := e.pubsub.Subscribe(ctx, domain.RaffleTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to raffle events: %w", err)
	}

	ch := make(chan domain.RaffleEvent)
	go func() {
		defer close(ch)
		for msg := range messages {
			event, err := domain.DecodeEvent(msg.Payload)
			msg.Ack()
			if err != nil {
				log.WithError(err).Warn("dropped malformed raffle event")
				continue
			}

			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (e *eventRepository) Close() {
	//nolint:errcheck
	e.pubsub.Close()
	e.RaffleEventRepository.Close()
}

func (e *eventRepository) publish(events []domain.RaffleEvent) error {
	watermillMessages, err := toWatermillMessages(events)
	if err != nil {
		return err
	}
	return e.pubsub.Publish(domain.RaffleTopic, watermillMessages...)
}

func toWatermillMessages(events []domain.RaffleEvent) ([]*message.Message, error) {
	watermillMessages := make([]*message.Message, 0, len(events))
	for _, event := range events {
		payload, err := domain.EncodeEvent(event)
		if err != nil {
			return nil, err
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set("type", event.GetType().String())
		watermillMessages = append(watermillMessages, msg)
	}

	return watermillMessages, nil
}
