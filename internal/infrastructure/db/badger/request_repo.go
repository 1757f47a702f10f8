package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const requestStoreDir = "requests"

type requestRepository struct {
	store *badgerhold.Store
}

func NewRequestRepository(config ...interface{}) (domain.RequestRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, requestStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open randomness request store: %s", err)
	}

	return &requestRepository{store}, nil
}

func (r *requestRepository) AddRequest(
	_ context.Context, request domain.RandomnessRequest,
) error {
	if err := r.store.Insert(request.Id, request); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("request %d already exists", request.Id)
		}
		return fmt.Errorf("failed to insert request %d: %s", request.Id, err)
	}
	return nil
}

func (r *requestRepository) UpdateRequest(
	_ context.Context, request domain.RandomnessRequest,
) error {
	if err := r.store.Update(request.Id, request); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: %d", domain.ErrUnknownRequest, request.Id)
		}
		return fmt.Errorf("failed to update request %d: %s", request.Id, err)
	}
	return nil
}

// GetRequest returns nil if no request with the given id exists.
func (r *requestRepository) GetRequest(
	_ context.Context, id uint64,
) (*domain.RandomnessRequest, error) {
	request := domain.RandomnessRequest{}
	if err := r.store.Get(id, &request); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get request %d: %s", id, err)
	}
	return &request, nil
}

func (r *requestRepository) GetPendingRequests(
	_ context.Context, raffleId string,
) ([]domain.RandomnessRequest, error) {
	var requests []domain.RandomnessRequest
	query := badgerhold.Where("RaffleId").Eq(raffleId)
	if err := r.store.Find(&requests, query); err != nil {
		return nil, err
	}

	pending := make([]domain.RandomnessRequest, 0)
	for _, request := range requests {
		if request.IsPending() {
			pending = append(pending, request)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Id < pending[j].Id })
	return pending, nil
}

func (r *requestRepository) Close() {
	// nolint:all
	r.store.Close()
}
