package schnorroracle

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	log "github.com/sirupsen/logrus"
)

var (
	seedTag = []byte("raffle/seed")
	wordTag = []byte("raffle/word")
)

// Proof lets anyone holding the oracle public key check that the random
// words of a request were derived from its seed.
type Proof struct {
	RequestId uint64
	Seed      []byte
	Signature []byte
}

type request struct {
	seed     []byte
	numWords uint32
}

// oracle produces random words by signing a per-request seed with its
// secret key. Since BIP-340 signatures are deterministic for a given key and
// message, the words can't be biased once the seed is fixed.
type oracle struct {
	key       *btcec.PrivateKey
	scheduler ports.SchedulerService
	delay     time.Duration

	lock          sync.Mutex
	nextRequestId uint64
	requests      map[uint64]request
	proofs        map[uint64]Proof
	handler       ports.FulfillmentHandler
	closed        bool
}

// NewOracle returns an oracle that fulfills every request after the given
// delay. A random key is generated if privateKey is empty.
func NewOracle(
	privateKey string, scheduler ports.SchedulerService, delay time.Duration,
) (ports.RandomnessOracle, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	if scheduler == nil {
		return nil, fmt.Errorf("missing scheduler")
	}

	log.Infof(
		"schnorr oracle public key: %x",
		schnorr.SerializePubKey(key.PubKey()),
	)

	return &oracle{
		key:           key,
		scheduler:     scheduler,
		delay:         delay,
		nextRequestId: 1,
		requests:      make(map[uint64]request),
		proofs:        make(map[uint64]Proof),
	}, nil
}

func (o *oracle) RequestRandomWords(
	_ context.Context, params ports.OracleParams,
) (uint64, error) {
	if params.NumWords == 0 {
		return 0, fmt.Errorf("invalid number of words, must be greater than zero")
	}

	o.lock.Lock()
	defer o.lock.Unlock()

	if o.closed {
		return 0, fmt.Errorf("oracle is closed")
	}

	id := o.nextRequestId
	now := o.scheduler.Now()
	seed := makeSeed(params, id, now)

	if err := o.scheduler.ScheduleTaskOnce(now.Add(o.delay), func() {
		o.fulfill(id)
	}); err != nil {
		return 0, fmt.Errorf("failed to schedule fulfillment: %s", err)
	}

	o.nextRequestId++
	o.requests[id] = request{seed, params.NumWords}

	log.Debugf("schnorr oracle: randomness requested with id %d", id)
	return id, nil
}

func (o *oracle) RegisterConsumer(handler ports.FulfillmentHandler) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.handler = handler
}

func (o *oracle) Close() {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.closed = true
}

// GetProof returns the proof of a fulfilled request.
func (o *oracle) GetProof(requestId uint64) (*Proof, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()

	proof, ok := o.proofs[requestId]
	if !ok {
		return nil, false
	}
	return &proof, true
}

func (o *oracle) fulfill(requestId uint64) {
	o.lock.Lock()
	req, ok := o.requests[requestId]
	handler := o.handler
	if !ok || o.closed {
		o.lock.Unlock()
		return
	}
	if handler == nil {
		o.lock.Unlock()
		log.Warnf("schnorr oracle: no consumer for request %d", requestId)
		return
	}
	delete(o.requests, requestId)
	o.lock.Unlock()

	sig, err := schnorr.Sign(o.key, req.seed)
	if err != nil {
		log.WithError(err).Warnf("schnorr oracle: failed to sign request %d", requestId)
		return
	}
	proof := Proof{requestId, req.seed, sig.Serialize()}

	words, err := VerifyProof(o.key.PubKey(), proof, req.numWords)
	if err != nil {
		log.WithError(err).Warnf("schnorr oracle: invalid proof for request %d", requestId)
		return
	}

	o.lock.Lock()
	o.proofs[requestId] = proof
	o.lock.Unlock()

	log.Debugf("schnorr oracle: fulfilling request %d", requestId)
	if err := handler(context.Background(), requestId, words); err != nil {
		log.WithError(err).Warnf(
			"schnorr oracle: consumer failed to process request %d", requestId,
		)
	}
}

// VerifyProof checks the signature of the proof against the oracle public
// key and returns the random words it commits to.
func VerifyProof(
	pubkey *btcec.PublicKey, proof Proof, numWords uint32,
) ([]uint64, error) {
	if len(proof.Seed) != chainhash.HashSize {
		return nil, fmt.Errorf("invalid seed length")
	}
	sig, err := schnorr.ParseSignature(proof.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %s", err)
	}
	if !sig.Verify(proof.Seed, pubkey) {
		return nil, fmt.Errorf("signature verification failed")
	}

	words := make([]uint64, 0, numWords)
	index := make([]byte, 4)
	for i := uint32(0); i < numWords; i++ {
		binary.BigEndian.PutUint32(index, i)
		hash := chainhash.TaggedHash(wordTag, proof.Signature, index)
		words = append(words, binary.BigEndian.Uint64(hash[:8]))
	}
	return words, nil
}

func makeSeed(params ports.OracleParams, requestId uint64, now time.Time) []byte {
	buf := make([]byte, 8+8+8)
	binary.BigEndian.PutUint64(buf[0:8], params.SubscriptionId)
	binary.BigEndian.PutUint64(buf[8:16], requestId)
	binary.BigEndian.PutUint64(buf[16:24], uint64(now.UnixNano()))
	hash := chainhash.TaggedHash(seedTag, []byte(params.KeyHash), buf)
	return hash[:]
}

func parsePrivateKey(privateKey string) (*btcec.PrivateKey, error) {
	if len(privateKey) <= 0 {
		return btcec.NewPrivateKey()
	}

	buf, err := hex.DecodeString(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key format, must be hex")
	}
	if len(buf) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf(
			"invalid private key length, must be %d bytes", secp256k1.PrivKeyBytesLen,
		)
	}
	return secp256k1.PrivKeyFromBytes(buf), nil
}
