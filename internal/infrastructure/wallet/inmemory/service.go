package inmemorywallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

var ErrTransferRejected = errors.New("recipient rejected transfer")

// service keeps the balances of participants and the custody account of the
// raffle in memory. Recipients listed as rejecting refuse any transfer, which
// is useful to exercise failed payouts.
type service struct {
	lock     sync.RWMutex
	balances map[string]uint64
	custody  uint64
	rejects  map[string]struct{}
}

func NewService(
	initialBalances map[string]uint64, rejectedRecipients []string,
) (ports.WalletService, error) {
	balances := make(map[string]uint64)
	for account, amount := range initialBalances {
		if len(account) <= 0 {
			return nil, fmt.Errorf("invalid initial balance, missing account")
		}
		balances[account] = amount
	}
	rejects := make(map[string]struct{})
	for _, recipient := range rejectedRecipients {
		rejects[recipient] = struct{}{}
	}

	return &service{
		balances: balances,
		rejects:  rejects,
	}, nil
}

func (s *service) Deposit(_ context.Context, account string, amount uint64) error {
	if len(account) <= 0 {
		return fmt.Errorf("missing account")
	}
	if amount == 0 {
		return fmt.Errorf("invalid amount, must be greater than zero")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.balances[account] > math.MaxUint64-amount {
		return fmt.Errorf("balance overflow for account %s", account)
	}
	s.balances[account] += amount
	log.Debugf("wallet: deposited %d to %s", amount, account)
	return nil
}

func (s *service) Collect(_ context.Context, from string, amount uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	balance := s.balances[from]
	if balance < amount {
		return fmt.Errorf(
			"%w: account %s has %d, needs %d",
			domain.ErrInsufficientFunds, from, balance, amount,
		)
	}
	if s.custody > math.MaxUint64-amount {
		return fmt.Errorf("custody balance overflow")
	}

	s.balances[from] = balance - amount
	s.custody += amount
	log.Debugf("wallet: collected %d from %s", amount, from)
	return nil
}

func (s *service) Transfer(_ context.Context, to string, amount uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.rejects[to]; ok {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to)
	}
	if s.custody < amount {
		return fmt.Errorf(
			"custody balance too low: has %d, needs %d", s.custody, amount,
		)
	}
	if s.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("balance overflow for account %s", to)
	}

	s.custody -= amount
	s.balances[to] += amount
	log.Debugf("wallet: transferred %d to %s", amount, to)
	return nil
}

func (s *service) GetBalance(_ context.Context, account string) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.balances[account], nil
}

func (s *service) GetCustodyBalance(_ context.Context) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.custody, nil
}

func (s *service) Close() {}
