package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ark-network/raffle/internal/core/domain"
)

const selectRequest = `
SELECT id, raffle_id, round, status, random_words, requested_at, fulfilled_at
FROM randomness_request`

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(config ...interface{}) (domain.RequestRepository, error) {
	db, err := parseConfig(config)
	if err != nil {
		return nil, fmt.Errorf("cannot open randomness request repository: %s", err)
	}
	return &requestRepository{db}, nil
}

func (r *requestRepository) AddRequest(
	ctx context.Context, request domain.RandomnessRequest,
) error {
	words, err := json.Marshal(request.RandomWords)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO randomness_request (
			id, raffle_id, round, status, random_words, requested_at, fulfilled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		request.Id, request.RaffleId, request.Round, int(request.Status),
		string(words), request.RequestedAt, request.FulfilledAt,
	); err != nil {
		return fmt.Errorf("failed to insert request %d: %w", request.Id, err)
	}
	return nil
}

func (r *requestRepository) UpdateRequest(
	ctx context.Context, request domain.RandomnessRequest,
) error {
	words, err := json.Marshal(request.RandomWords)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE randomness_request
		SET status = ?, random_words = ?, fulfilled_at = ?
		WHERE id = ?`,
		int(request.Status), string(words), request.FulfilledAt, request.Id,
	)
	if err != nil {
		return fmt.Errorf("failed to update request %d: %w", request.Id, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrUnknownRequest, request.Id)
	}
	return nil
}

// GetRequest returns nil if no request with the given id exists.
func (r *requestRepository) GetRequest(
	ctx context.Context, id uint64,
) (*domain.RandomnessRequest, error) {
	row := r.db.QueryRowContext(ctx, selectRequest+" WHERE id = ?", id)
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get request %d: %w", id, err)
	}
	return request, nil
}

func (r *requestRepository) GetPendingRequests(
	ctx context.Context, raffleId string,
) ([]domain.RandomnessRequest, error) {
	rows, err := r.db.QueryContext(
		ctx, selectRequest+" WHERE raffle_id = ? AND status = ? ORDER BY id ASC",
		raffleId, int(domain.RequestPending),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.RandomnessRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	return requests, rows.Err()
}

func (r *requestRepository) Close() {}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*domain.RandomnessRequest, error) {
	var (
		request domain.RandomnessRequest
		status  int
		words   string
	)
	if err := row.Scan(
		&request.Id, &request.RaffleId, &request.Round, &status, &words,
		&request.RequestedAt, &request.FulfilledAt,
	); err != nil {
		return nil, err
	}

	request.Status = domain.RequestStatus(status)
	if err := json.Unmarshal([]byte(words), &request.RandomWords); err != nil {
		return nil, fmt.Errorf("failed to parse random words: %w", err)
	}
	return &request, nil
}
