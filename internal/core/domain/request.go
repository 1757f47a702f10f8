package domain

import (
	"fmt"
	"time"
)

const (
	RequestPending RequestStatus = iota
	RequestFulfilled
	RequestExpired
)

type RequestStatus int

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestFulfilled:
		return "fulfilled"
	case RequestExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RandomnessRequest tracks a single request issued to the randomness oracle.
// A request is fulfilled at most once.
type RandomnessRequest struct {
	Id          uint64
	RaffleId    string
	Round       uint64
	Status      RequestStatus
	RandomWords []uint64
	RequestedAt int64
	FulfilledAt int64
}

func NewRandomnessRequest(
	id uint64, raffleId string, round uint64, now time.Time,
) RandomnessRequest {
	return RandomnessRequest{
		Id:          id,
		RaffleId:    raffleId,
		Round:       round,
		Status:      RequestPending,
		RandomWords: make([]uint64, 0),
		RequestedAt: now.Unix(),
	}
}

func (r RandomnessRequest) IsPending() bool {
	return r.Status == RequestPending
}

func (r *RandomnessRequest) Fulfill(randomWords []uint64, now time.Time) error {
	if !r.IsPending() {
		return fmt.Errorf("%w: %d already fulfilled", ErrUnknownRequest, r.Id)
	}
	if len(randomWords) <= 0 {
		return fmt.Errorf("missing random words for request %d", r.Id)
	}
	r.Status = RequestFulfilled
	r.RandomWords = append([]uint64{}, randomWords...)
	r.FulfilledAt = now.Unix()
	return nil
}

// Expire marks a request that will never be consumed, so that a late
// fulfillment is rejected.
func (r *RandomnessRequest) Expire(now time.Time) error {
	if !r.IsPending() {
		return fmt.Errorf("request %d is not pending", r.Id)
	}
	r.Status = RequestExpired
	r.FulfilledAt = now.Unix()
	return nil
}
