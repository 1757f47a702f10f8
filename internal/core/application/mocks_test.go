package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type mockedWallet struct {
	mock.Mock
}

func (m *mockedWallet) Deposit(ctx context.Context, account string, amount uint64) error {
	args := m.Called(ctx, account, amount)
	return args.Error(0)
}

func (m *mockedWallet) Collect(ctx context.Context, from string, amount uint64) error {
	args := m.Called(ctx, from, amount)
	return args.Error(0)
}

func (m *mockedWallet) Transfer(ctx context.Context, to string, amount uint64) error {
	args := m.Called(ctx, to, amount)
	return args.Error(0)
}

func (m *mockedWallet) GetBalance(ctx context.Context, account string) (uint64, error) {
	args := m.Called(ctx, account)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockedWallet) GetCustodyBalance(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockedWallet) Close() {
	m.Called()
}

type mockedOracle struct {
	mock.Mock
	handler ports.FulfillmentHandler
}

func (m *mockedOracle) RequestRandomWords(
	ctx context.Context, params ports.OracleParams,
) (uint64, error) {
	args := m.Called(ctx, params)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockedOracle) RegisterConsumer(handler ports.FulfillmentHandler) {
	m.handler = handler
}

func (m *mockedOracle) Close() {
	m.Called()
}

// fakeScheduler lets tests move the clock and run scheduled tasks by hand.
type fakeScheduler struct {
	lock  sync.Mutex
	now   time.Time
	tasks []func()
}

func newFakeScheduler(now time.Time) *fakeScheduler {
	return &fakeScheduler{now: now}
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) Now() time.Time {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.now
}

func (s *fakeScheduler) advance(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.now = s.now.Add(d)
}

func (s *fakeScheduler) ScheduleTask(_ time.Duration, _ bool, task func()) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeScheduler) ScheduleTaskOnce(_ time.Time, task func()) error {
	return s.ScheduleTask(0, false, task)
}

func (s *fakeScheduler) runTasks() {
	s.lock.Lock()
	tasks := append([]func(){}, s.tasks...)
	s.lock.Unlock()

	for _, task := range tasks {
		task()
	}
}

type fakeRepoManager struct {
	events   *fakeEventRepository
	raffles  *fakeRaffleRepository
	requests *fakeRequestRepository
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		events:   &fakeEventRepository{events: make(map[string][]domain.RaffleEvent)},
		raffles:  &fakeRaffleRepository{raffles: make(map[string]domain.Raffle)},
		requests: &fakeRequestRepository{requests: make(map[uint64]domain.RandomnessRequest)},
	}
}

func (m *fakeRepoManager) Events() domain.RaffleEventRepository { return m.events }
func (m *fakeRepoManager) Raffles() domain.RaffleRepository     { return m.raffles }
func (m *fakeRepoManager) Requests() domain.RequestRepository   { return m.requests }
func (m *fakeRepoManager) EventBus() ports.EventBus             { return m.events }
func (m *fakeRepoManager) Close()                               {}

// fakeEventRepository runs the registered handler synchronously.
type fakeEventRepository struct {
	lock    sync.Mutex
	events  map[string][]domain.RaffleEvent
	handler func(*domain.Raffle)
	saveErr error
	subs    []chan domain.RaffleEvent
}

func (r *fakeEventRepository) Save(
	_ context.Context, id string, events ...domain.RaffleEvent,
) (*domain.Raffle, error) {
	r.lock.Lock()
	if r.saveErr != nil {
		r.lock.Unlock()
		return nil, r.saveErr
	}
	r.events[id] = append(r.events[id], events...)
	all := append([]domain.RaffleEvent{}, r.events[id]...)
	handler := r.handler
	subs := append([]chan domain.RaffleEvent{}, r.subs...)
	r.lock.Unlock()

	for _, ch := range subs {
		for _, e := range events {
			ch <- e
		}
	}
	if handler != nil {
		handler(domain.NewRaffleFromEvents(all))
	}
	return domain.NewRaffleFromEvents(all), nil
}

func (r *fakeEventRepository) Load(_ context.Context, id string) (*domain.Raffle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return domain.NewRaffleFromEvents(r.events[id]), nil
}

func (r *fakeEventRepository) RegisterEventsHandler(handler func(*domain.Raffle)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.handler = handler
}

func (r *fakeEventRepository) Close() {}

func (r *fakeEventRepository) Subscribe(_ context.Context) (<-chan domain.RaffleEvent, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	ch := make(chan domain.RaffleEvent, 100)
	r.subs = append(r.subs, ch)
	return ch, nil
}

func (r *fakeEventRepository) setSaveErr(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.saveErr = err
}

type fakeRaffleRepository struct {
	lock    sync.Mutex
	raffles map[string]domain.Raffle
	latest  string
	winners []domain.WinnerPicked
}

func (r *fakeRaffleRepository) AddOrUpdateRaffle(_ context.Context, raffle domain.Raffle) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.raffles[raffle.Id] = raffle
	r.latest = raffle.Id
	return nil
}

func (r *fakeRaffleRepository) GetRaffleWithId(_ context.Context, id string) (*domain.Raffle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	raffle, ok := r.raffles[id]
	if !ok {
		return nil, domain.ErrRaffleNotFound
	}
	return &raffle, nil
}

func (r *fakeRaffleRepository) GetLatestRaffle(ctx context.Context) (*domain.Raffle, error) {
	r.lock.Lock()
	latest := r.latest
	r.lock.Unlock()
	if latest == "" {
		return nil, domain.ErrRaffleNotFound
	}
	return r.GetRaffleWithId(ctx, latest)
}

func (r *fakeRaffleRepository) GetWinners(_ context.Context, raffleId string) ([]domain.WinnerPicked, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	winners := make([]domain.WinnerPicked, 0)
	for _, w := range r.winners {
		if w.Id == raffleId {
			winners = append(winners, w)
		}
	}
	return winners, nil
}

func (r *fakeRaffleRepository) AddWinner(_ context.Context, winner domain.WinnerPicked) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.winners = append(r.winners, winner)
	return nil
}

func (r *fakeRaffleRepository) Close() {}

type fakeRequestRepository struct {
	lock     sync.Mutex
	requests map[uint64]domain.RandomnessRequest
}

func (r *fakeRequestRepository) AddRequest(_ context.Context, request domain.RandomnessRequest) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.requests[request.Id]; ok {
		return fmt.Errorf("duplicated request %d", request.Id)
	}
	r.requests[request.Id] = request
	return nil
}

func (r *fakeRequestRepository) UpdateRequest(_ context.Context, request domain.RandomnessRequest) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.requests[request.Id] = request
	return nil
}

func (r *fakeRequestRepository) GetRequest(_ context.Context, id uint64) (*domain.RandomnessRequest, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return &request, nil
}

func (r *fakeRequestRepository) GetPendingRequests(
	_ context.Context, raffleId string,
) ([]domain.RandomnessRequest, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	pending := make([]domain.RandomnessRequest, 0)
	for _, request := range r.requests {
		if request.RaffleId == raffleId && request.IsPending() {
			pending = append(pending, request)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Id < pending[j].Id })
	return pending, nil
}

func (r *fakeRequestRepository) Close() {}
