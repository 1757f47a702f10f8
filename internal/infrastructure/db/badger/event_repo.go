package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const eventStoreDir = "raffle-events"

type eventsDTO struct {
	Events [][]byte
}

type eventRepository struct {
	store     *badgerhold.Store
	lock      *sync.Mutex
	chUpdates chan *domain.Raffle
	handler   func(raffle *domain.Raffle)
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewRaffleEventRepository(config ...interface{}) (domain.RaffleEventRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open raffle events store: %s", err)
	}
	repo := &eventRepository{
		store:     store,
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
	r.lock.Lock()
	allEvents, err := r.get(ctx, id)
	if err != nil {
		r.lock.Unlock()
		return nil, err
	}

	allEvents = append(allEvents, events...)
	if err := r.upsert(ctx, id, allEvents); err != nil {
		r.lock.Unlock()
		return nil, err
	}
	r.lock.Unlock()

	r.wg.Add(1)
	go r.publishEvents(allEvents)
	return domain.NewRaffleFromEvents(allEvents), nil
}

func (r *eventRepository) Load(
	ctx context.Context, id string,
) (*domain.Raffle, error) {
	events, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.NewRaffleFromEvents(events), nil
}

func (r *eventRepository) RegisterEventsHandler(
	handler func(raffle *domain.Raffle),
) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.handler = handler
}

func (r *eventRepository) Close() {
	close(r.done)
	r.wg.Wait()
	r.store.Close()
}

func (r *eventRepository) get(
	ctx context.Context, id string,
) ([]domain.RaffleEvent, error) {
	dto := eventsDTO{}
	var err error
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok && tx != nil {
		err = r.store.TxGet(tx, id, &dto)
	} else {
		err = r.store.Get(id, &dto)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get events with id %s: %s", id, err)
	}

	return deserializeEvents(dto.Events)
}

func (r *eventRepository) upsert(
	ctx context.Context, id string, events []domain.RaffleEvent,
) error {
	buf, err := serializeEvents(events)
	if err != nil {
		return err
	}
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok && tx != nil {
		err = r.store.TxUpsert(tx, id, buf)
	} else {
		err = r.store.Upsert(id, buf)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert events with id %s: %s", id, err)
	}
	return nil
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
