package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ark-network/raffle/internal/core/domain"
)

type eventRepository struct {
	db        *sql.DB
	lock      *sync.Mutex
	chUpdates chan *domain.Raffle
	handler   func(raffle *domain.Raffle)
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewRaffleEventRepository(config ...interface{}) (domain.RaffleEventRepository, error) {
	db, err := parseConfig(config)
	if err != nil {
		return nil, fmt.Errorf("cannot open raffle event repository: %s", err)
	}

	repo := &eventRepository{
		db:        db,
		lock:      &sync.Mutex{},
		chUpdates: make(chan *domain.Raffle),
		done:      make(chan struct{}),
	}
	go repo.listen()
	return repo, nil
}

func (r *eventRepository) Save(
	ctx context.Context, id string, events ...domain.RaffleEvent,
) (*domain.Raffle, error) {
	txBody := func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(
			ctx, "INSERT INTO raffle_event (raffle_id, event_type, payload) VALUES (?, ?, ?)",
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, event := range events {
			buf, err := domain.EncodeEvent(event)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, id, int(event.GetType()), buf); err != nil {
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
		return nil
	}
	if err := execTx(ctx, r.db, txBody); err != nil {
		return nil, err
	}

	allEvents, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go r.publishEvents(allEvents)
	return domain.NewRaffleFromEvents(allEvents), nil
}

func (r *eventRepository) Load(ctx context.Context, id string) (*domain.Raffle, error) {
	events, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.NewRaffleFromEvents(events), nil
}

func (r *eventRepository) RegisterEventsHandler(handler func(raffle *domain.Raffle)) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.handler = handler
}

func (r *eventRepository) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *eventRepository) get(ctx context.Context, id string) ([]domain.RaffleEvent, error) {
	rows, err := r.db.QueryContext(
		ctx, "SELECT payload FROM raffle_event WHERE raffle_id = ? ORDER BY id ASC", id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events with id %s: %w", id, err)
	}
	defer rows.Close()

	events := make([]domain.RaffleEvent, 0)
	for rows.Next() {
		var buf []byte
		if err := rows.Scan(&buf); err != nil {
			return nil, err
		}
		event, err := domain.DecodeEvent(buf)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventRepository) listen() {
	for {
		select {
		case <-r.done:
			return
		case raffle := <-r.chUpdates:
			r.runHandler(raffle)
		}
	}
}

func (r *eventRepository) publishEvents(events []domain.RaffleEvent) {
	defer r.wg.Done()
	raffle := domain.NewRaffleFromEvents(events)
	select {
	case <-r.done:
		return
	case r.chUpdates <- raffle:
	}
}

func (r *eventRepository) runHandler(raffle *domain.Raffle) {
	r.lock.Lock()
	handler := r.handler
	r.lock.Unlock()

	if handler == nil {
		return
	}
	handler(raffle)
}
