package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/ark-network/raffle/internal/infrastructure/db"
	"github.com/stretchr/testify/require"
)

var (
	genesis  = time.Unix(1700000000, 0)
	interval = time.Minute
	players  = []string{"alice", "bob", "carol", "dave"}
)

func newRepoManagers(t *testing.T) map[string]ports.RepoManager {
	badgerSvc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	dir := t.TempDir()
	sqliteSvc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "sqlite",
		DataStoreType:    "sqlite",
		EventStoreConfig: []interface{}{dir},
		DataStoreConfig:  []interface{}{dir},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		badgerSvc.Close()
		sqliteSvc.Close()
	})

	return map[string]ports.RepoManager{
		"badger": badgerSvc,
		"sqlite": sqliteSvc,
	}
}

func TestNewService(t *testing.T) {
	fixtures := []db.ServiceConfig{
		{EventStoreType: "postgres", DataStoreType: "badger"},
		{EventStoreType: "badger", DataStoreType: "postgres"},
		{
			EventStoreType:   "badger",
			DataStoreType:    "badger",
			EventStoreConfig: []interface{}{"", nil},
			DataStoreConfig:  []interface{}{""},
		},
		{
			EventStoreType:   "badger",
			DataStoreType:    "badger",
			EventStoreConfig: []interface{}{1, nil},
			DataStoreConfig:  []interface{}{"", nil},
		},
		{
			EventStoreType:   "badger",
			DataStoreType:    "sqlite",
			EventStoreConfig: []interface{}{"", nil},
			DataStoreConfig:  []interface{}{},
		},
	}

	for _, f := range fixtures {
		svc, err := db.NewService(f)
		require.Error(t, err)
		require.Nil(t, svc)
	}
}

func TestService(t *testing.T) {
	for name, repoManager := range newRepoManagers(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("event repository", func(t *testing.T) {
				testEventRepository(t, repoManager)
			})
			t.Run("raffle repository", func(t *testing.T) {
				testRaffleRepository(t, repoManager)
			})
			t.Run("request repository", func(t *testing.T) {
				testRequestRepository(t, repoManager)
			})
		})
	}
}

func testEventRepository(t *testing.T, repoManager ports.RepoManager) {
	ctx := context.Background()

	var lock sync.Mutex
	handled := make([]*domain.Raffle, 0)
	repoManager.Events().RegisterEventsHandler(func(raffle *domain.Raffle) {
		lock.Lock()
		defer lock.Unlock()
		handled = append(handled, raffle)
	})

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := repoManager.EventBus().Subscribe(subCtx)
	require.NoError(t, err)

	raffle := domain.NewRaffle(100, interval)
	events, err := raffle.Start(genesis)
	require.NoError(t, err)

	saved, err := repoManager.Events().Save(ctx, raffle.Id, events...)
	require.NoError(t, err)
	require.Equal(t, raffle.Id, saved.Id)
	require.True(t, saved.IsOpen())

	for _, p := range players {
		events, err := raffle.Enter(p, 100, genesis)
		require.NoError(t, err)
		_, err = repoManager.Events().Save(ctx, raffle.Id, events...)
		require.NoError(t, err)
	}

	loaded, err := repoManager.Events().Load(ctx, raffle.Id)
	require.NoError(t, err)
	require.Equal(t, raffle.Id, loaded.Id)
	require.Equal(t, raffle.Ledger.Entries, loaded.Ledger.Entries)
	require.Equal(t, raffle.Gate, loaded.Gate)
	require.Equal(t, uint(5), loaded.Version)

	missing, err := repoManager.Events().Load(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, domain.UndefinedState, missing.State)

	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(handled) == 5
	}, 5*time.Second, 50*time.Millisecond)

	received := make(map[domain.EventType]int)
	for i := 0; i < 5; i++ {
		select {
		case event := <-ch:
			received[event.GetType()]++
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for published events")
		}
	}
	require.Equal(t, 1, received[domain.EventTypeRaffleStarted])
	require.Equal(t, 4, received[domain.EventTypeRaffleEntered])
}

func testRaffleRepository(t *testing.T, repoManager ports.RepoManager) {
	ctx := context.Background()
	repo := repoManager.Raffles()

	raffle := domain.NewRaffle(100, interval)
	_, err := raffle.Start(genesis)
	require.NoError(t, err)
	for _, p := range players {
		_, err := raffle.Enter(p, 100, genesis)
		require.NoError(t, err)
	}
	_, err = raffle.StartCalculating(1, genesis.Add(interval))
	require.NoError(t, err)
	_, err = raffle.SelectWinner(1, []uint64{7}, genesis.Add(interval))
	require.NoError(t, err)
	_, err = raffle.FailPayout(errors.New("rejected"), genesis.Add(interval))
	require.NoError(t, err)

	_, err = repo.GetRaffleWithId(ctx, raffle.Id)
	require.ErrorIs(t, err, domain.ErrRaffleNotFound)

	snapshot := domain.NewRaffleFromEvents(raffle.Events())
	require.NoError(t, repo.AddOrUpdateRaffle(ctx, *snapshot))

	stored, err := repo.GetRaffleWithId(ctx, raffle.Id)
	require.NoError(t, err)
	requireSameRaffle(t, snapshot, stored)

	latest, err := repo.GetLatestRaffle(ctx)
	require.NoError(t, err)
	require.Equal(t, raffle.Id, latest.Id)

	// older snapshots are ignored
	older := domain.NewRaffleFromEvents(raffle.Events()[:3])
	require.NoError(t, repo.AddOrUpdateRaffle(ctx, *older))
	stored, err = repo.GetRaffleWithId(ctx, raffle.Id)
	require.NoError(t, err)
	requireSameRaffle(t, snapshot, stored)

	events, err := raffle.CompletePayout(genesis.Add(interval))
	require.NoError(t, err)
	winner := events[0].(domain.WinnerPicked)
	require.NoError(t, repo.AddWinner(ctx, winner))
	require.NoError(t, repo.AddWinner(ctx, winner))

	winners, err := repo.GetWinners(ctx, raffle.Id)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.Equal(t, winner, winners[0])

	winners, err = repo.GetWinners(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, winners)
}

func testRequestRepository(t *testing.T, repoManager ports.RepoManager) {
	ctx := context.Background()
	repo := repoManager.Requests()

	request, err := repo.GetRequest(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, request)

	first := domain.NewRandomnessRequest(1, "raffle", 1, genesis)
	second := domain.NewRandomnessRequest(2, "raffle", 2, genesis)
	other := domain.NewRandomnessRequest(3, "other", 1, genesis)
	for _, r := range []domain.RandomnessRequest{first, second, other} {
		require.NoError(t, repo.AddRequest(ctx, r))
	}
	require.Error(t, repo.AddRequest(ctx, first))

	pending, err := repo.GetPendingRequests(ctx, "raffle")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, uint64(1), pending[0].Id)
	require.Equal(t, uint64(2), pending[1].Id)

	words := []uint64{7, ^uint64(0)}
	require.NoError(t, first.Fulfill(words, genesis.Add(interval)))
	require.NoError(t, repo.UpdateRequest(ctx, first))

	request, err = repo.GetRequest(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, request)
	require.False(t, request.IsPending())
	require.Equal(t, words, request.RandomWords)
	require.Equal(t, "raffle", request.RaffleId)
	require.Equal(t, genesis.Add(interval).Unix(), request.FulfilledAt)

	pending, err = repo.GetPendingRequests(ctx, "raffle")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, uint64(2), pending[0].Id)

	unknown := domain.NewRandomnessRequest(99, "raffle", 1, genesis)
	err = repo.UpdateRequest(ctx, unknown)
	require.ErrorIs(t, err, domain.ErrUnknownRequest)
}

func requireSameRaffle(t *testing.T, expected, got *domain.Raffle) {
	require.Equal(t, expected.Id, got.Id)
	require.Equal(t, expected.State, got.State)
	require.Equal(t, expected.Round, got.Round)
	require.Equal(t, expected.EntranceFee, got.EntranceFee)
	require.Equal(t, expected.Gate, got.Gate)
	require.Equal(t, expected.Ledger.Entries, got.Ledger.Entries)
	require.Equal(t, expected.Ledger.Closed, got.Ledger.Closed)
	require.Equal(t, expected.OutstandingRequestId, got.OutstandingRequestId)
	require.Equal(t, expected.PendingPayout, got.PendingPayout)
	require.Equal(t, expected.Version, got.Version)
}
