package application

import (
	"context"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	Enter(ctx context.Context, participant string, amount uint64) (int, error)
	CheckUpkeep(ctx context.Context) (bool, domain.UpkeepStatus, error)
	PerformUpkeep(ctx context.Context) (uint64, error)
	FulfillRandomness(ctx context.Context, requestId uint64, randomWords []uint64) error
	FulfillRequest(ctx context.Context, requestId uint64, randomWords []uint64) error
	RetrySettlement(ctx context.Context) error
	GetRaffleInfo(ctx context.Context) (*RaffleInfo, error)
	GetParticipant(ctx context.Context, index int) (string, error)
	GetRequest(ctx context.Context, requestId uint64) (*domain.RandomnessRequest, error)
	GetWinners(ctx context.Context) ([]domain.WinnerPicked, error)
	GetEventsChannel(ctx context.Context) (<-chan domain.RaffleEvent, error)
	Deposit(ctx context.Context, account string, amount uint64) error
	GetBalance(ctx context.Context, account string) (uint64, error)
}

type RaffleInfo struct {
	Id                   string
	State                string
	Round                uint64
	EntranceFee          uint64
	Interval             time.Duration
	LatestTimestamp      int64
	NextUpkeepIn         time.Duration
	NumberOfPlayers      int
	TotalContributed     uint64
	CustodyBalance       uint64
	OutstandingRequestId uint64
	RecentWinner         string
	RecentPrize          uint64
	PendingPayout        *domain.Payout
}
