package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const raffleStoreDir = "raffles"

type raffleDTO struct {
	Id        string
	Raffle    domain.Raffle
	Version   uint
	UpdatedAt int64
}

type winnerDTO struct {
	RaffleId  string
	Round     uint64
	Winner    string
	Prize     uint64
	Timestamp int64
}

type raffleRepository struct {
	store *badgerhold.Store
}

func NewRaffleRepository(config ...interface{}) (domain.RaffleRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, raffleStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open raffle store: %s", err)
	}

	return &raffleRepository{store}, nil
}

// AddOrUpdateRaffle ignores snapshots older than the stored one, since
// projections may be delivered out of order.
func (r *raffleRepository) AddOrUpdateRaffle(
	ctx context.Context, raffle domain.Raffle,
) error {
	current := raffleDTO{}
	err := r.store.Get(raffle.Id, &current)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to get raffle %s: %s", raffle.Id, err)
	}
	if err == nil && current.Version > raffle.Version {
		return nil
	}

	dto := raffleDTO{
		Id:        raffle.Id,
		Raffle:    raffle,
		Version:   raffle.Version,
		UpdatedAt: time.Now().UnixNano(),
	}
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok && tx != nil {
		err = r.store.TxUpsert(tx, raffle.Id, dto)
	} else {
		err = r.store.Upsert(raffle.Id, dto)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert raffle %s: %s", raffle.Id, err)
	}
	return nil
}

func (r *raffleRepository) GetRaffleWithId(
	_ context.Context, id string,
) (*domain.Raffle, error) {
	dto := raffleDTO{}
	if err := r.store.Get(id, &dto); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrRaffleNotFound, id)
		}
		return nil, err
	}
	return &dto.Raffle, nil
}

func (r *raffleRepository) GetLatestRaffle(_ context.Context) (*domain.Raffle, error) {
	var dtos []raffleDTO
	if err := r.store.Find(&dtos, nil); err != nil {
		return nil, err
	}
	if len(dtos) <= 0 {
		return nil, domain.ErrRaffleNotFound
	}

	sort.SliceStable(dtos, func(i, j int) bool {
		return dtos[i].UpdatedAt > dtos[j].UpdatedAt
	})
	return &dtos[0].Raffle, nil
}

func (r *raffleRepository) AddWinner(_ context.Context, winner domain.WinnerPicked) error {
	dto := winnerDTO{
		RaffleId:  winner.Id,
		Round:     winner.Round,
		Winner:    winner.Winner,
		Prize:     winner.Prize,
		Timestamp: winner.Timestamp,
	}
	key := fmt.Sprintf("%s:%d", winner.Id, winner.Round)
	if err := r.store.Upsert(key, dto); err != nil {
		return fmt.Errorf("failed to store winner of round %d: %s", winner.Round, err)
	}
	return nil
}

func (r *raffleRepository) GetWinners(
	_ context.Context, raffleId string,
) ([]domain.WinnerPicked, error) {
	var dtos []winnerDTO
	query := badgerhold.Where("RaffleId").Eq(raffleId)
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, err
	}
	sort.SliceStable(dtos, func(i, j int) bool {
		return dtos[i].Round < dtos[j].Round
	})

	winners := make([]domain.WinnerPicked, 0, len(dtos))
	for _, dto := range dtos {
		winners = append(winners, domain.WinnerPicked{
			Id:        dto.RaffleId,
			Round:     dto.Round,
			Winner:    dto.Winner,
			Prize:     dto.Prize,
			Timestamp: dto.Timestamp,
		})
	}
	return winners, nil
}

func (r *raffleRepository) Close() {
	// nolint:all
	r.store.Close()
}
