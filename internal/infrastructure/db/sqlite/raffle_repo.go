package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ark-network/raffle/internal/core/domain"
)

const selectRaffle = `
SELECT id, state, round, entrance_fee, interval_ns, start_timestamp,
	outstanding_request_id, recent_winner, recent_prize, closed, pending_payout, version
FROM raffle`

type raffleRepository struct {
	db *sql.DB
}

func NewRaffleRepository(config ...interface{}) (domain.RaffleRepository, error) {
	db, err := parseConfig(config)
	if err != nil {
		return nil, fmt.Errorf("cannot open raffle repository: %s", err)
	}
	return &raffleRepository{db}, nil
}

// AddOrUpdateRaffle ignores snapshots older than the stored one, since
// projections may be delivered out of order.
func (r *raffleRepository) AddOrUpdateRaffle(ctx context.Context, raffle domain.Raffle) error {
	var pendingPayout sql.NullString
	if raffle.PendingPayout != nil {
		buf, err := json.Marshal(raffle.PendingPayout)
		if err != nil {
			return err
		}
		pendingPayout = sql.NullString{String: string(buf), Valid: true}
	}

	txBody := func(tx *sql.Tx) error {
		var version uint
		err := tx.QueryRowContext(
			ctx, "SELECT version FROM raffle WHERE id = ?", raffle.Id,
		).Scan(&version)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil && version > raffle.Version {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO raffle (
				id, state, round, entrance_fee, interval_ns, start_timestamp,
				outstanding_request_id, recent_winner, recent_prize, closed,
				pending_payout, version, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				state = excluded.state,
				round = excluded.round,
				start_timestamp = excluded.start_timestamp,
				outstanding_request_id = excluded.outstanding_request_id,
				recent_winner = excluded.recent_winner,
				recent_prize = excluded.recent_prize,
				closed = excluded.closed,
				pending_payout = excluded.pending_payout,
				version = excluded.version,
				updated_at = excluded.updated_at`,
			raffle.Id, int(raffle.State), raffle.Round, raffle.EntranceFee,
			int64(raffle.Interval()), raffle.Gate.StartTimestamp,
			raffle.OutstandingRequestId, raffle.RecentWinner, raffle.RecentPrize,
			raffle.Ledger.Closed, pendingPayout, raffle.Version, time.Now().UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to upsert raffle: %w", err)
		}

		if _, err := tx.ExecContext(
			ctx, "DELETE FROM entry WHERE raffle_id = ?", raffle.Id,
		); err != nil {
			return fmt.Errorf("failed to clear entries: %w", err)
		}
		for i, entry := range raffle.Ledger.Entries {
			if _, err := tx.ExecContext(
				ctx,
				"INSERT INTO entry (raffle_id, position, participant, amount) VALUES (?, ?, ?, ?)",
				raffle.Id, i, entry.Participant, entry.Amount,
			); err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}
		return nil
	}

	return execTx(ctx, r.db, txBody)
}

func (r *raffleRepository) GetRaffleWithId(ctx context.Context, id string) (*domain.Raffle, error) {
	row := r.db.QueryRowContext(ctx, selectRaffle+" WHERE id = ?", id)
	raffle, err := r.scanRaffle(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRaffleNotFound, id)
		}
		return nil, err
	}
	return raffle, nil
}

func (r *raffleRepository) GetLatestRaffle(ctx context.Context) (*domain.Raffle, error) {
	row := r.db.QueryRowContext(ctx, selectRaffle+" ORDER BY updated_at DESC LIMIT 1")
	raffle, err := r.scanRaffle(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRaffleNotFound
		}
		return nil, err
	}
	return raffle, nil
}

func (r *raffleRepository) AddWinner(ctx context.Context, winner domain.WinnerPicked) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO winner (raffle_id, round, winner, prize, picked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(raffle_id, round) DO NOTHING`,
		winner.Id, winner.Round, winner.Winner, winner.Prize, winner.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert winner: %w", err)
	}
	return nil
}

func (r *raffleRepository) GetWinners(
	ctx context.Context, raffleId string,
) ([]domain.WinnerPicked, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT raffle_id, round, winner, prize, picked_at FROM winner
		WHERE raffle_id = ? ORDER BY round ASC`, raffleId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	winners := make([]domain.WinnerPicked, 0)
	for rows.Next() {
		var w domain.WinnerPicked
		if err := rows.Scan(&w.Id, &w.Round, &w.Winner, &w.Prize, &w.Timestamp); err != nil {
			return nil, err
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}

func (r *raffleRepository) Close() {}

func (r *raffleRepository) scanRaffle(ctx context.Context, row *sql.Row) (*domain.Raffle, error) {
	var (
		raffle        domain.Raffle
		state         int
		intervalNs    int64
		closed        bool
		pendingPayout sql.NullString
	)
	if err := row.Scan(
		&raffle.Id, &state, &raffle.Round, &raffle.EntranceFee, &intervalNs,
		&raffle.Gate.StartTimestamp, &raffle.OutstandingRequestId,
		&raffle.RecentWinner, &raffle.RecentPrize, &closed, &pendingPayout,
		&raffle.Version,
	); err != nil {
		return nil, err
	}

	raffle.State = domain.RaffleState(state)
	raffle.Gate.Interval = time.Duration(intervalNs)
	raffle.Ledger = domain.NewEntryLedger(raffle.EntranceFee)
	raffle.Ledger.Closed = closed
	if pendingPayout.Valid {
		payout := &domain.Payout{}
		if err := json.Unmarshal([]byte(pendingPayout.String), payout); err != nil {
			return nil, fmt.Errorf("failed to parse pending payout: %w", err)
		}
		raffle.PendingPayout = payout
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT participant, amount FROM entry
		WHERE raffle_id = ? ORDER BY position ASC`, raffle.Id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.Entry
		if err := rows.Scan(&entry.Participant, &entry.Amount); err != nil {
			return nil, err
		}
		raffle.Ledger.Entries = append(raffle.Ledger.Entries, entry)
	}
	return &raffle, rows.Err()
}
