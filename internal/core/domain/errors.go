package domain

import "errors"

var (
	ErrInsufficientFunds   = errors.New("entry amount is below the entrance fee")
	ErrRoundClosed         = errors.New("raffle is not open for entries")
	ErrUpkeepNotNeeded     = errors.New("upkeep not needed")
	ErrRequestInFlight     = errors.New("randomness request already in flight")
	ErrUnknownRequest      = errors.New("nonexistent request")
	ErrIndexOutOfRange     = errors.New("participant index out of range")
	ErrTransferFailed      = errors.New("prize transfer failed")
	ErrNoPendingSettlement = errors.New("no pending settlement to retry")
	ErrRaffleNotFound      = errors.New("raffle not found")
	ErrContributionLimit   = errors.New("entry would overflow the round total")
)
