package ports

import (
	"context"

	"github.com/ark-network/raffle/internal/core/domain"
)

type RepoManager interface {
	Events() domain.RaffleEventRepository
	Raffles() domain.RaffleRepository
	Requests() domain.RequestRepository
	EventBus() EventBus
	Close()
}

// EventBus fans out persisted raffle events to any number of subscribers.
type EventBus interface {
	Subscribe(ctx context.Context) (<-chan domain.RaffleEvent, error)
}
