package ports

import "context"

// WalletService holds the custody account of the raffle. Entry funds are
// collected into custody and the prize is transferred out of it.
type WalletService interface {
	Deposit(ctx context.Context, account string, amount uint64) error
	Collect(ctx context.Context, from string, amount uint64) error
	Transfer(ctx context.Context, to string, amount uint64) error
	GetBalance(ctx context.Context, account string) (uint64, error)
	GetCustodyBalance(ctx context.Context) (uint64, error)
	Close()
}
