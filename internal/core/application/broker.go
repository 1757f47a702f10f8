package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// randomnessBroker issues randomness requests to the oracle and guarantees
// that every fulfillment is consumed at most once.
type randomnessBroker struct {
	oracle   ports.RandomnessOracle
	requests domain.RequestRepository
	params   ports.OracleParams
}

func newRandomnessBroker(
	oracle ports.RandomnessOracle, requests domain.RequestRepository,
	params ports.OracleParams,
) *randomnessBroker {
	if params.NumWords == 0 {
		params.NumWords = 1
	}
	return &randomnessBroker{oracle, requests, params}
}

// requestRandomness fails if the given outstanding request is still pending.
// Any other pending request of the raffle was never committed to a round and
// is expired before issuing a new one.
func (b *randomnessBroker) requestRandomness(
	ctx context.Context, raffleId string, round, outstandingId uint64, now time.Time,
) (uint64, error) {
	pending, err := b.requests.GetPendingRequests(ctx, raffleId)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending requests: %s", err)
	}
	for _, request := range pending {
		if outstandingId != 0 && request.Id == outstandingId {
			return 0, fmt.Errorf("%w: %d", domain.ErrRequestInFlight, request.Id)
		}
	}
	for _, request := range pending {
		log.Warnf("expiring orphaned randomness request %d", request.Id)
		if err := b.expire(ctx, request.Id, now); err != nil {
			return 0, err
		}
	}

	requestId, err := b.oracle.RequestRandomWords(ctx, b.params)
	if err != nil {
		return 0, fmt.Errorf("failed to request random words: %w", err)
	}

	request := domain.NewRandomnessRequest(requestId, raffleId, round, now)
	if err := b.requests.AddRequest(ctx, request); err != nil {
		return 0, fmt.Errorf("failed to store request %d: %s", requestId, err)
	}

	log.Debugf("requested randomness for raffle %s round %d: %d", raffleId, round, requestId)
	return requestId, nil
}

// validate returns the pending request matching the given id. It does not
// mutate anything.
func (b *randomnessBroker) validate(
	ctx context.Context, requestId uint64, randomWords []uint64,
) (*domain.RandomnessRequest, error) {
	if requestId == 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRequest, requestId)
	}

	request, err := b.requests.GetRequest(ctx, requestId)
	if err != nil {
		return nil, fmt.Errorf("failed to get request %d: %s", requestId, err)
	}
	if request == nil || !request.IsPending() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRequest, requestId)
	}
	if len(randomWords) <= 0 {
		return nil, fmt.Errorf("missing random words for request %d", requestId)
	}

	return request, nil
}

func (b *randomnessBroker) markFulfilled(
	ctx context.Context, request *domain.RandomnessRequest,
	randomWords []uint64, now time.Time,
) error {
	if err := request.Fulfill(randomWords, now); err != nil {
		return err
	}
	if err := b.requests.UpdateRequest(ctx, *request); err != nil {
		return fmt.Errorf("failed to update request %d: %s", request.Id, err)
	}
	return nil
}

// expire makes sure a late fulfillment for the given request is rejected.
func (b *randomnessBroker) expire(
	ctx context.Context, requestId uint64, now time.Time,
) error {
	request, err := b.requests.GetRequest(ctx, requestId)
	if err != nil {
		return fmt.Errorf("failed to get request %d: %s", requestId, err)
	}
	if request == nil || !request.IsPending() {
		return nil
	}
	if err := request.Expire(now); err != nil {
		return err
	}
	if err := b.requests.UpdateRequest(ctx, *request); err != nil {
		return fmt.Errorf("failed to expire request %d: %s", requestId, err)
	}
	return nil
}

func (b *randomnessBroker) getRequest(
	ctx context.Context, requestId uint64,
) (*domain.RandomnessRequest, error) {
	request, err := b.requests.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRequest, requestId)
	}
	return request, nil
}
