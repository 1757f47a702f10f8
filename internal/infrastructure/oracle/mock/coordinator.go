package mockoracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	log "github.com/sirupsen/logrus"
)

var ErrNonexistentRequest = domain.ErrUnknownRequest

type request struct {
	params ports.OracleParams
}

// coordinator is a local stand-in for a VRF coordinator. Requests stay
// pending until explicitly fulfilled.
type coordinator struct {
	baseFee      uint64
	gasPriceLink uint64

	lock          sync.Mutex
	nextRequestId uint64
	requests      map[uint64]request
	handler       ports.FulfillmentHandler
	totalPayments uint64
}

func NewCoordinator(baseFee, gasPriceLink uint64) ports.ManualOracle {
	return &coordinator{
		baseFee:       baseFee,
		gasPriceLink:  gasPriceLink,
		nextRequestId: 1,
		requests:      make(map[uint64]request),
	}
}

func (c *coordinator) RequestRandomWords(
	_ context.Context, params ports.OracleParams,
) (uint64, error) {
	if params.NumWords == 0 {
		return 0, fmt.Errorf("invalid number of words, must be greater than zero")
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	id := c.nextRequestId
	c.nextRequestId++
	c.requests[id] = request{params}

	log.Debugf("mock oracle: randomness requested with id %d", id)
	return id, nil
}

func (c *coordinator) RegisterConsumer(handler ports.FulfillmentHandler) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.handler = handler
}

func (c *coordinator) FulfillRandomWords(ctx context.Context, requestId uint64) error {
	return c.FulfillRandomWordsWithOverride(ctx, requestId, nil)
}

// FulfillRandomWordsWithOverride delivers the given words to the consumer,
// or words derived from the request id if none are given. The request is
// consumed even if the consumer fails.
func (c *coordinator) FulfillRandomWordsWithOverride(
	ctx context.Context, requestId uint64, randomWords []uint64,
) error {
	c.lock.Lock()
	req, ok := c.requests[requestId]
	if !ok {
		c.lock.Unlock()
		return ErrNonexistentRequest
	}
	handler := c.handler
	if handler == nil {
		c.lock.Unlock()
		return fmt.Errorf("no consumer registered")
	}
	delete(c.requests, requestId)
	payment := c.baseFee + c.gasPriceLink*uint64(req.params.CallbackGasLimit)
	c.totalPayments += payment
	c.lock.Unlock()

	if len(randomWords) <= 0 {
		randomWords = deriveWords(requestId, req.params.NumWords)
	}

	log.Debugf(
		"mock oracle: fulfilling request %d with %d words (payment %d)",
		requestId, len(randomWords), payment,
	)
	if err := handler(ctx, requestId, randomWords); err != nil {
		return fmt.Errorf("consumer failed to process request %d: %w", requestId, err)
	}
	return nil
}

func (c *coordinator) Close() {}

func deriveWords(requestId uint64, numWords uint32) []uint64 {
	words := make([]uint64, 0, numWords)
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], requestId)
	for i := uint32(0); i < numWords; i++ {
		binary.BigEndian.PutUint64(buf[8:], uint64(i))
		hash := chainhash.HashB(buf)
		words = append(words, binary.BigEndian.Uint64(hash[:8]))
	}
	return words
}
