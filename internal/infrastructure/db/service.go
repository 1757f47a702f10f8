package db

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/core/ports"
	badgerdb "github.com/ark-network/raffle/internal/infrastructure/db/badger"
	sqlitedb "github.com/ark-network/raffle/internal/infrastructure/db/sqlite"
	watermilldb "github.com/ark-network/raffle/internal/infrastructure/db/watermill"
	"github.com/ThreeDotsLabs/watermill"
	log "github.com/sirupsen/logrus"
)

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.RaffleEventRepository, error){
		"badger": badgerdb.NewRaffleEventRepository,
		"sqlite": sqlitedb.NewRaffleEventRepository,
	}
	raffleStoreTypes = map[string]func(...interface{}) (domain.RaffleRepository, error){
		"badger": badgerdb.NewRaffleRepository,
		"sqlite": sqlitedb.NewRaffleRepository,
	}
	requestStoreTypes = map[string]func(...interface{}) (domain.RequestRepository, error){
		"badger": badgerdb.NewRequestRepository,
		"sqlite": sqlitedb.NewRequestRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}

	// optional, used by the event bus
	Logger *log.Logger
}

type service struct {
	eventStore   watermilldb.EventRepository
	raffleStore  domain.RaffleRepository
	requestStore domain.RequestRepository
	sqliteDbs    []*sql.DB
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid event store type: %s", config.EventStoreType)
	}
	raffleStoreFactory, ok := raffleStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	requestStoreFactory, ok := requestStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	svc := &service{}

	eventStoreConfig := config.EventStoreConfig
	if config.EventStoreType == "sqlite" {
		db, err := svc.openSqlite(config.EventStoreConfig)
		if err != nil {
			return nil, err
		}
		eventStoreConfig = []interface{}{db}
	}
	dataStoreConfig := config.DataStoreConfig
	if config.DataStoreType == "sqlite" {
		db, err := svc.openSqlite(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}
		dataStoreConfig = []interface{}{db}
	}

	eventStore, err := eventStoreFactory(eventStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store: %w", err)
	}

	raffleStore, err := raffleStoreFactory(dataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create raffle store: %w", err)
	}

	requestStore, err := requestStoreFactory(dataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create request store: %w", err)
	}

	var logger watermill.LoggerAdapter
	if config.Logger != nil {
		logger = watermilldb.NewLogrusAdapter(config.Logger)
	}

	svc.eventStore = watermilldb.NewWatermillEventRepository(eventStore, logger)
	svc.raffleStore = raffleStore
	svc.requestStore = requestStore
	return svc, nil
}

func (s *service) Events() domain.RaffleEventRepository {
	return s.eventStore
}

func (s *service) Raffles() domain.RaffleRepository {
	return s.raffleStore
}

func (s *service) Requests() domain.RequestRepository {
	return s.requestStore
}

func (s *service) EventBus() ports.EventBus {
	return s.eventStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.raffleStore.Close()
	s.requestStore.Close()
	for _, db := range s.sqliteDbs {
		// nolint:all
		db.Close()
	}
}

// openSqlite opens and migrates the sqlite db in the given directory, reusing
// it if already opened for another store.
func (s *service) openSqlite(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	dir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid config, expected base directory at 0")
	}

	if len(s.sqliteDbs) > 0 {
		return s.sqliteDbs[0], nil
	}

	db, err := sqlitedb.OpenDb(filepath.Join(dir, sqliteDbFile))
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.MigrateDb(db); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	s.sqliteDbs = append(s.sqliteDbs, db)
	return db, nil
}
