package schnorroracle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ark-network/raffle/internal/core/ports"
	schnorroracle "github.com/ark-network/raffle/internal/infrastructure/oracle/schnorr"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const privateKey = "0000000000000000000000000000000000000000000000000000000000000003"

var params = ports.OracleParams{
	KeyHash:        "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
	SubscriptionId: 1,
	NumWords:       3,
}

type proofProvider interface {
	GetProof(requestId uint64) (*schnorroracle.Proof, bool)
}

// manualScheduler collects one-off tasks and runs them on demand.
type manualScheduler struct {
	lock  sync.Mutex
	now   time.Time
	tasks []func()
}

func (s *manualScheduler) Start() {}
func (s *manualScheduler) Stop()  {}

func (s *manualScheduler) Now() time.Time {
	return s.now
}

func (s *manualScheduler) ScheduleTask(time.Duration, bool, func()) error {
	return nil
}

func (s *manualScheduler) ScheduleTaskOnce(_ time.Time, task func()) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *manualScheduler) runTasks() {
	s.lock.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.lock.Unlock()

	for _, task := range tasks {
		task()
	}
}

func TestNewOracle(t *testing.T) {
	scheduler := &manualScheduler{now: time.Unix(1700000000, 0)}

	fixtures := []struct {
		name      string
		key       string
		scheduler ports.SchedulerService
		valid     bool
	}{
		{"random key", "", scheduler, true},
		{"given key", privateKey, scheduler, true},
		{"invalid hex", "not a key", scheduler, false},
		{"invalid length", "0003", scheduler, false},
		{"missing scheduler", privateKey, nil, false},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			oracle, err := schnorroracle.NewOracle(f.key, f.scheduler, 0)
			if f.valid {
				require.NoError(t, err)
				require.NotNil(t, oracle)
				return
			}
			require.Error(t, err)
			require.Nil(t, oracle)
		})
	}
}

func TestFulfillment(t *testing.T) {
	ctx := context.Background()
	scheduler := &manualScheduler{now: time.Unix(1700000000, 0)}

	oracle, err := schnorroracle.NewOracle(privateKey, scheduler, time.Second)
	require.NoError(t, err)
	defer oracle.Close()

	received := make(map[uint64][]uint64)
	oracle.RegisterConsumer(func(_ context.Context, id uint64, words []uint64) error {
		received[id] = words
		return nil
	})

	_, err = oracle.RequestRandomWords(ctx, ports.OracleParams{})
	require.Error(t, err)

	first, err := oracle.RequestRandomWords(ctx, params)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)

	second, err := oracle.RequestRandomWords(ctx, params)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second)

	require.Empty(t, received)
	scheduler.runTasks()

	require.Len(t, received, 2)
	require.Len(t, received[first], int(params.NumWords))
	require.NotEqual(t, received[first], received[second])

	provider, ok := oracle.(proofProvider)
	require.True(t, ok)

	proof, ok := provider.GetProof(first)
	require.True(t, ok)

	buf := make([]byte, 32)
	buf[31] = 3
	key, _ := btcec.PrivKeyFromBytes(buf)

	words, err := schnorroracle.VerifyProof(key.PubKey(), *proof, params.NumWords)
	require.NoError(t, err)
	require.Equal(t, received[first], words)

	otherKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	_, err = schnorroracle.VerifyProof(otherKey.PubKey(), *proof, params.NumWords)
	require.Error(t, err)

	tampered := *proof
	tampered.Seed = append([]byte{}, proof.Seed...)
	tampered.Seed[0] ^= 0xff
	_, err = schnorroracle.VerifyProof(key.PubKey(), tampered, params.NumWords)
	require.Error(t, err)

	_, ok = provider.GetProof(42)
	require.False(t, ok)
}

func TestCloseDropsPendingRequests(t *testing.T) {
	ctx := context.Background()
	scheduler := &manualScheduler{now: time.Unix(1700000000, 0)}

	oracle, err := schnorroracle.NewOracle("", scheduler, 0)
	require.NoError(t, err)

	count := 0
	oracle.RegisterConsumer(func(context.Context, uint64, []uint64) error {
		count++
		return nil
	})

	_, err = oracle.RequestRandomWords(ctx, params)
	require.NoError(t, err)

	oracle.Close()
	scheduler.runTasks()
	require.Zero(t, count)

	_, err = oracle.RequestRandomWords(ctx, params)
	require.Error(t, err)
}
