package application

import (
	"context"
	"errors"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// maxAutoSettlementAttempts bounds how many times the keeper retries a
// failed prize transfer on its own. Further attempts must be triggered
// explicitly.
const maxAutoSettlementAttempts = 3

// keeper periodically runs the check/perform upkeep cycle, like an external
// automation network would.
type keeper struct {
	svc       *raffleService
	scheduler ports.SchedulerService
	interval  time.Duration
}

func newKeeper(
	svc *raffleService, scheduler ports.SchedulerService, interval time.Duration,
) *keeper {
	return &keeper{svc, scheduler, interval}
}

func (k *keeper) start() error {
	if k.interval <= 0 {
		log.Debug("keeper disabled")
		return nil
	}

	log.Debugf("starting keeper with interval %s", k.interval)
	return k.scheduler.ScheduleTask(k.interval, false, k.run)
}

func (k *keeper) run() {
	ctx := context.Background()

	if k.shouldRetrySettlement() {
		if err := k.svc.RetrySettlement(ctx); err != nil {
			log.WithError(err).Warn("keeper failed to settle pending payout")
		}
		return
	}

	needed, status, err := k.svc.CheckUpkeep(ctx)
	if err != nil {
		log.WithError(err).Warn("keeper failed to check upkeep")
		return
	}
	if !needed {
		log.Tracef("upkeep not needed (%s)", status)
		return
	}

	requestId, err := k.svc.PerformUpkeep(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUpkeepNotNeeded) {
			log.WithError(err).Debug("keeper upkeep skipped")
			return
		}
		log.WithError(err).Warn("keeper failed to perform upkeep")
		return
	}
	log.Debugf("keeper performed upkeep, randomness request %d", requestId)
}

func (k *keeper) shouldRetrySettlement() bool {
	k.svc.lock.Lock()
	defer k.svc.lock.Unlock()

	raffle := k.svc.raffle
	return raffle != nil && raffle.PendingPayout != nil &&
		raffle.PendingPayout.Attempts < maxAutoSettlementAttempts
}
