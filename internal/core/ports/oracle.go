package ports

import "context"

// OracleParams are forwarded untouched to the randomness oracle.
type OracleParams struct {
	KeyHash              string
	SubscriptionId       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// FulfillmentHandler is invoked by the oracle once the random words for a
// request are available.
type FulfillmentHandler func(ctx context.Context, requestId uint64, randomWords []uint64) error

type RandomnessOracle interface {
	RequestRandomWords(ctx context.Context, params OracleParams) (uint64, error)
	RegisterConsumer(handler FulfillmentHandler)
	Close()
}

// ManualOracle is implemented by oracles whose requests are fulfilled on
// demand rather than automatically.
type ManualOracle interface {
	RandomnessOracle
	FulfillRandomWords(ctx context.Context, requestId uint64) error
	FulfillRandomWordsWithOverride(
		ctx context.Context, requestId uint64, randomWords []uint64,
	) error
}
