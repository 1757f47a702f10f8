package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type raffleService struct {
	// services
	repoManager ports.RepoManager
	wallet      ports.WalletService
	oracle      ports.RandomnessOracle
	scheduler   ports.SchedulerService
	notifier    ports.Notifier
	broker      *randomnessBroker
	keeper      *keeper

	// config
	entranceFee    uint64
	interval       time.Duration
	keeperInterval time.Duration

	// every entry point runs to completion while holding the lock
	lock   *sync.Mutex
	raffle *domain.Raffle
}

func NewService(
	entranceFee uint64, interval, keeperInterval time.Duration,
	oracleParams ports.OracleParams,
	repoManager ports.RepoManager, walletSvc ports.WalletService,
	oracle ports.RandomnessOracle, scheduler ports.SchedulerService,
	notifier ports.Notifier,
) (Service, error) {
	if entranceFee == 0 {
		return nil, fmt.Errorf("invalid entrance fee, must be greater than zero")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval, must be greater than zero")
	}

	svc := &raffleService{
		repoManager:    repoManager,
		wallet:         walletSvc,
		oracle:         oracle,
		scheduler:      scheduler,
		notifier:       notifier,
		broker:         newRandomnessBroker(oracle, repoManager.Requests(), oracleParams),
		entranceFee:    entranceFee,
		interval:       interval,
		keeperInterval: keeperInterval,
		lock:           &sync.Mutex{},
	}
	svc.keeper = newKeeper(svc, scheduler, keeperInterval)

	repoManager.Events().RegisterEventsHandler(
		func(raffle *domain.Raffle) {
			svc.updateProjectionStore(raffle)
			svc.notifyWinner(raffle)
		},
	)

	return svc, nil
}

func (s *raffleService) Start() error {
	ctx := context.Background()

	raffle, err := s.restoreRaffle(ctx)
	if err != nil {
		return err
	}
	if raffle == nil {
		raffle = domain.NewRaffle(s.entranceFee, s.interval)
		events, err := raffle.Start(s.scheduler.Now())
		if err != nil {
			return err
		}
		if _, err := s.repoManager.Events().Save(ctx, raffle.Id, events...); err != nil {
			return fmt.Errorf("failed to store new raffle events: %s", err)
		}
		log.Infof("started new raffle %s", raffle.Id)
	}

	s.lock.Lock()
	s.raffle = raffle
	s.lock.Unlock()

	s.oracle.RegisterConsumer(s.FulfillRandomness)

	log.Debug("starting scheduler")
	s.scheduler.Start()

	if err := s.keeper.start(); err != nil {
		return fmt.Errorf("failed to start keeper: %s", err)
	}
	return nil
}

func (s *raffleService) Stop() {
	s.scheduler.Stop()
	log.Debug("stopped scheduler")
	s.oracle.Close()
	log.Debug("closed connection to oracle")
	s.wallet.Close()
	log.Debug("closed connection to wallet")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *raffleService) Enter(
	ctx context.Context, participant string, amount uint64,
) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return 0, err
	}
	if err := raffle.CanEnter(participant, amount); err != nil {
		return 0, err
	}

	if err := s.wallet.Collect(ctx, participant, amount); err != nil {
		return 0, fmt.Errorf("failed to collect entry funds: %w", err)
	}

	events, err := raffle.Enter(participant, amount, s.scheduler.Now())
	if err == nil {
		err = s.commit(ctx, events)
	}
	if err != nil {
		if refundErr := s.wallet.Transfer(ctx, participant, amount); refundErr != nil {
			log.WithError(refundErr).Warnf("failed to refund %s", participant)
		}
		return 0, err
	}

	count := s.raffle.Ledger.TotalParticipants()
	log.WithField("participant", participant).Debugf(
		"entered raffle round %d with %d", s.raffle.Round, amount,
	)
	return count, nil
}

func (s *raffleService) CheckUpkeep(
	_ context.Context,
) (bool, domain.UpkeepStatus, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return false, domain.UpkeepStatus{}, err
	}

	status := raffle.CheckUpkeep(s.scheduler.Now())
	return status.Needed(), status, nil
}

func (s *raffleService) PerformUpkeep(ctx context.Context) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return 0, err
	}

	now := s.scheduler.Now()
	if status := raffle.CheckUpkeep(now); !status.Needed() {
		return 0, fmt.Errorf("%w (%s)", domain.ErrUpkeepNotNeeded, status)
	}

	requestId, err := s.broker.requestRandomness(
		ctx, raffle.Id, raffle.Round, raffle.OutstandingRequestId, now,
	)
	if err != nil {
		return 0, err
	}

	events, err := raffle.StartCalculating(requestId, now)
	if err == nil {
		err = s.commit(ctx, events)
	}
	if err != nil {
		if expireErr := s.broker.expire(ctx, requestId, now); expireErr != nil {
			log.WithError(expireErr).Warnf("failed to expire request %d", requestId)
		}
		return 0, err
	}

	log.Infof(
		"raffle round %d closed with %d players, requested randomness %d",
		raffle.Round, raffle.Ledger.TotalParticipants(), requestId,
	)
	return requestId, nil
}

func (s *raffleService) FulfillRandomness(
	ctx context.Context, requestId uint64, randomWords []uint64,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return err
	}

	request, err := s.broker.validate(ctx, requestId, randomWords)
	if err != nil {
		return err
	}
	if request.RaffleId != raffle.Id {
		return fmt.Errorf("%w: %d", domain.ErrUnknownRequest, requestId)
	}

	now := s.scheduler.Now()
	events, err := raffle.SelectWinner(requestId, randomWords, now)
	if err != nil {
		return err
	}

	if err := s.commit(ctx, events); err != nil {
		return err
	}
	// the committed winner already rejects any further fulfillment
	if err := s.broker.markFulfilled(ctx, request, randomWords, now); err != nil {
		log.WithError(err).Warnf("failed to mark request %d as fulfilled", requestId)
	}

	payout := s.raffle.PendingPayout
	log.Infof(
		"selected winner %s at index %d for raffle round %d",
		payout.Winner, payout.WinnerIndex, s.raffle.Round,
	)

	return s.settle(ctx, now)
}

func (s *raffleService) FulfillRequest(
	ctx context.Context, requestId uint64, randomWords []uint64,
) error {
	oracle, ok := s.oracle.(ports.ManualOracle)
	if !ok {
		return fmt.Errorf("oracle does not support manual fulfillment")
	}

	if len(randomWords) > 0 {
		return oracle.FulfillRandomWordsWithOverride(ctx, requestId, randomWords)
	}
	return oracle.FulfillRandomWords(ctx, requestId)
}

func (s *raffleService) RetrySettlement(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return err
	}
	if raffle.PendingPayout == nil {
		return domain.ErrNoPendingSettlement
	}

	return s.settle(ctx, s.scheduler.Now())
}

func (s *raffleService) GetRaffleInfo(ctx context.Context) (*RaffleInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return nil, err
	}

	custodyBalance, err := s.wallet.GetCustodyBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get custody balance: %s", err)
	}

	var payout *domain.Payout
	if raffle.PendingPayout != nil {
		p := *raffle.PendingPayout
		payout = &p
	}

	return &RaffleInfo{
		Id:                   raffle.Id,
		State:                raffle.State.String(),
		Round:                raffle.Round,
		EntranceFee:          raffle.EntranceFee,
		Interval:             raffle.Interval(),
		LatestTimestamp:      raffle.Gate.StartTimestamp,
		NextUpkeepIn:         raffle.Gate.Remaining(s.scheduler.Now()),
		NumberOfPlayers:      raffle.Ledger.TotalParticipants(),
		TotalContributed:     raffle.Ledger.TotalContributed(),
		CustodyBalance:       custodyBalance,
		OutstandingRequestId: raffle.OutstandingRequestId,
		RecentWinner:         raffle.RecentWinner,
		RecentPrize:          raffle.RecentPrize,
		PendingPayout:        payout,
	}, nil
}

func (s *raffleService) GetParticipant(_ context.Context, index int) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	raffle, err := s.getRaffle()
	if err != nil {
		return "", err
	}
	return raffle.Ledger.ParticipantAt(index)
}

func (s *raffleService) GetRequest(
	ctx context.Context, requestId uint64,
) (*domain.RandomnessRequest, error) {
	return s.broker.getRequest(ctx, requestId)
}

func (s *raffleService) GetWinners(ctx context.Context) ([]domain.WinnerPicked, error) {
	s.lock.Lock()
	raffle, err := s.getRaffle()
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	return s.repoManager.Raffles().GetWinners(ctx, raffle.Id)
}

func (s *raffleService) GetEventsChannel(
	ctx context.Context,
) (<-chan domain.RaffleEvent, error) {
	return s.repoManager.EventBus().Subscribe(ctx)
}

func (s *raffleService) Deposit(
	ctx context.Context, account string, amount uint64,
) error {
	return s.wallet.Deposit(ctx, account, amount)
}

func (s *raffleService) GetBalance(ctx context.Context, account string) (uint64, error) {
	return s.wallet.GetBalance(ctx, account)
}

// settle transfers the pending prize to the selected winner. The raffle is
// reopened only if the transfer succeeds, otherwise the payout stays pending
// for a later retry.
func (s *raffleService) settle(ctx context.Context, now time.Time) error {
	payout := s.raffle.PendingPayout

	if err := s.wallet.Transfer(ctx, payout.Winner, payout.Prize); err != nil {
		log.WithError(err).Warnf(
			"failed to transfer prize of %d to %s", payout.Prize, payout.Winner,
		)

		events, failErr := s.raffle.FailPayout(err, now)
		if failErr == nil {
			failErr = s.commit(ctx, events)
		}
		if failErr != nil {
			log.WithError(failErr).Warn("failed to store payout failure")
		}
		return fmt.Errorf("%w: %s", domain.ErrTransferFailed, err)
	}

	round := s.raffle.Round
	events, err := s.raffle.CompletePayout(now)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, events); err != nil {
		return err
	}

	log.Infof(
		"winner %s picked for raffle round %d, prize %d",
		payout.Winner, round, payout.Prize,
	)
	return nil
}

func (s *raffleService) commit(ctx context.Context, events []domain.RaffleEvent) error {
	if len(events) <= 0 {
		return nil
	}
	if _, err := s.repoManager.Events().Save(ctx, s.raffle.Id, events...); err != nil {
		s.reload(ctx)
		return fmt.Errorf("failed to store raffle events: %s", err)
	}
	return nil
}

// reload discards the in-memory changes and rebuilds the raffle from the
// event store.
func (s *raffleService) reload(ctx context.Context) {
	raffle, err := s.repoManager.Events().Load(ctx, s.raffle.Id)
	if err != nil {
		log.WithError(err).Warn("failed to reload raffle from event store")
		return
	}
	s.raffle = raffle
}

func (s *raffleService) restoreRaffle(ctx context.Context) (*domain.Raffle, error) {
	latest, err := s.repoManager.Raffles().GetLatestRaffle(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRaffleNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest raffle: %s", err)
	}

	raffle, err := s.repoManager.Events().Load(ctx, latest.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load raffle %s: %s", latest.Id, err)
	}
	if raffle.State == domain.UndefinedState {
		return nil, nil
	}

	if raffle.EntranceFee != s.entranceFee || raffle.Interval() != s.interval {
		log.Warnf(
			"restored raffle %s keeps entrance fee %d and interval %s",
			raffle.Id, raffle.EntranceFee, raffle.Interval(),
		)
	}
	if raffle.PendingPayout != nil {
		log.Warnf(
			"restored raffle %s has a pending payout of %d to %s",
			raffle.Id, raffle.PendingPayout.Prize, raffle.PendingPayout.Winner,
		)
	}

	log.Infof("restored raffle %s at round %d", raffle.Id, raffle.Round)
	return raffle, nil
}

func (s *raffleService) getRaffle() (*domain.Raffle, error) {
	if s.raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}
	return s.raffle, nil
}

func (s *raffleService) updateProjectionStore(raffle *domain.Raffle) {
	ctx := context.Background()
	events := raffle.Events()
	if len(events) <= 0 {
		return
	}

	if err := s.repoManager.Raffles().AddOrUpdateRaffle(ctx, *raffle); err != nil {
		log.WithError(err).Warn("failed to update raffle projection")
		return
	}

	if winner, ok := events[len(events)-1].(domain.WinnerPicked); ok {
		if err := s.repoManager.Raffles().AddWinner(ctx, winner); err != nil {
			log.WithError(err).Warn("failed to store raffle winner")
		}
	}

	log.Debugf("updated projection of raffle %s", raffle.Id)
}

func (s *raffleService) notifyWinner(raffle *domain.Raffle) {
	if s.notifier == nil {
		return
	}
	events := raffle.Events()
	if len(events) <= 0 {
		return
	}
	winner, ok := events[len(events)-1].(domain.WinnerPicked)
	if !ok {
		return
	}

	go func() {
		msg := fmt.Sprintf(
			"You won round %d of raffle %s, %d has been sent to you",
			winner.Round, winner.Id, winner.Prize,
		)
		if err := s.notifier.Notify(context.Background(), winner.Winner, msg); err != nil {
			log.WithError(err).Debugf("failed to notify winner %s", winner.Winner)
		}
	}()
}
