package domain

import "context"

type RaffleEventRepository interface {
	Save(ctx context.Context, id string, events ...RaffleEvent) (*Raffle, error)
	Load(ctx context.Context, id string) (*Raffle, error)
	RegisterEventsHandler(func(*Raffle))
	Close()
}

// RaffleRepository is the read projection of the raffle aggregates, kept up
// to date from the event store.
type RaffleRepository interface {
	AddOrUpdateRaffle(ctx context.Context, raffle Raffle) error
	GetRaffleWithId(ctx context.Context, id string) (*Raffle, error)
	GetLatestRaffle(ctx context.Context) (*Raffle, error)
	GetWinners(ctx context.Context, raffleId string) ([]WinnerPicked, error)
	AddWinner(ctx context.Context, winner WinnerPicked) error
	Close()
}

type RequestRepository interface {
	AddRequest(ctx context.Context, request RandomnessRequest) error
	UpdateRequest(ctx context.Context, request RandomnessRequest) error
	GetRequest(ctx context.Context, id uint64) (*RandomnessRequest, error)
	GetPendingRequests(ctx context.Context, raffleId string) ([]RandomnessRequest, error)
	Close()
}
