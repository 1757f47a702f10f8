package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ark-network/raffle/internal/core/application"
	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/ark-network/raffle/internal/infrastructure/db"
	nostrnotifier "github.com/ark-network/raffle/internal/infrastructure/notifier/nostr"
	mockoracle "github.com/ark-network/raffle/internal/infrastructure/oracle/mock"
	schnorroracle "github.com/ark-network/raffle/internal/infrastructure/oracle/schnorr"
	timescheduler "github.com/ark-network/raffle/internal/infrastructure/scheduler/gocron"
	inmemorywallet "github.com/ark-network/raffle/internal/infrastructure/wallet/inmemory"
	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedEventDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedOracles = supportedType{
		"mock":    {},
		"schnorr": {},
	}
	supportedWallets = supportedType{
		"inmemory": {},
	}
	supportedNotifiers = supportedType{
		"nostr": {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType        string
	EventDbType   string
	DbDir         string
	EventDbDir    string
	SchedulerType string
	OracleType    string
	WalletType    string
	NotifierType  string

	EntranceFee    uint64
	Interval       int64
	KeeperInterval int64

	OracleFulfillDelay         int64
	OraclePrivateKey           string `json:"-"`
	OracleKeyHash              string
	OracleSubscriptionId       uint64
	OracleRequestConfirmations uint16
	OracleCallbackGasLimit     uint32
	OracleNumWords             uint32
	OracleBaseFee              uint64
	OracleGasPriceLink         uint64

	WalletInitialBalances    string
	WalletRejectedRecipients []string

	repo      ports.RepoManager
	svc       application.Service
	wallet    ports.WalletService
	oracle    ports.RandomnessOracle
	scheduler ports.SchedulerService
	notifier  ports.Notifier
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir                    = "DATADIR"
	Port                       = "PORT"
	LogLevel                   = "LOG_LEVEL"
	DbType                     = "DB_TYPE"
	EventDbType                = "EVENT_DB_TYPE"
	SchedulerType              = "SCHEDULER_TYPE"
	OracleType                 = "ORACLE_TYPE"
	WalletType                 = "WALLET_TYPE"
	NotifierType               = "NOTIFIER_TYPE"
	EntranceFee                = "ENTRANCE_FEE"
	Interval                   = "INTERVAL"
	KeeperInterval             = "KEEPER_INTERVAL"
	OracleFulfillDelay         = "ORACLE_FULFILL_DELAY"
	OraclePrivateKey           = "ORACLE_PRIVATE_KEY"
	OracleKeyHash              = "ORACLE_KEY_HASH"
	OracleSubscriptionId       = "ORACLE_SUBSCRIPTION_ID"
	OracleRequestConfirmations = "ORACLE_REQUEST_CONFIRMATIONS"
	OracleCallbackGasLimit     = "ORACLE_CALLBACK_GAS_LIMIT"
	OracleNumWords             = "ORACLE_NUM_WORDS"
	OracleBaseFee              = "ORACLE_BASE_FEE"
	OracleGasPriceLink         = "ORACLE_GAS_PRICE_LINK"
	WalletInitialBalances      = "WALLET_INITIAL_BALANCES"
	WalletRejectedRecipients   = "WALLET_REJECTED_RECIPIENTS"

	defaultDatadir                    = btcutil.AppDataDir("raffled", false)
	DefaultPort                       = 7080
	defaultLogLevel                   = 4
	defaultDbType                     = "badger"
	defaultEventDbType                = "badger"
	defaultSchedulerType              = "gocron"
	defaultOracleType                 = "schnorr"
	defaultWalletType                 = "inmemory"
	defaultEntranceFee                = 10_000_000
	defaultInterval                   = 30
	defaultKeeperInterval             = 5
	defaultOracleFulfillDelay         = 2
	defaultOracleKeyHash              = "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
	defaultOracleRequestConfirmations = 3
	defaultOracleCallbackGasLimit     = 500000
	defaultOracleNumWords             = 1
	defaultOracleBaseFee              = 250_000_000_000_000_000 // 0.25 LINK
	defaultOracleGasPriceLink         = 1_000_000_000
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("RAFFLE")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(EventDbType, defaultEventDbType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(OracleType, defaultOracleType)
	viper.SetDefault(WalletType, defaultWalletType)
	viper.SetDefault(EntranceFee, defaultEntranceFee)
	viper.SetDefault(Interval, defaultInterval)
	viper.SetDefault(KeeperInterval, defaultKeeperInterval)
	viper.SetDefault(OracleFulfillDelay, defaultOracleFulfillDelay)
	viper.SetDefault(OracleKeyHash, defaultOracleKeyHash)
	viper.SetDefault(OracleRequestConfirmations, defaultOracleRequestConfirmations)
	viper.SetDefault(OracleCallbackGasLimit, defaultOracleCallbackGasLimit)
	viper.SetDefault(OracleNumWords, defaultOracleNumWords)
	viper.SetDefault(OracleBaseFee, uint64(defaultOracleBaseFee))
	viper.SetDefault(OracleGasPriceLink, defaultOracleGasPriceLink)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	dbPath := filepath.Join(viper.GetString(Datadir), "db")

	return &Config{
		Datadir:                    viper.GetString(Datadir),
		Port:                       viper.GetUint32(Port),
		LogLevel:                   viper.GetInt(LogLevel),
		DbType:                     viper.GetString(DbType),
		EventDbType:                viper.GetString(EventDbType),
		DbDir:                      dbPath,
		EventDbDir:                 dbPath,
		SchedulerType:              viper.GetString(SchedulerType),
		OracleType:                 viper.GetString(OracleType),
		WalletType:                 viper.GetString(WalletType),
		NotifierType:               viper.GetString(NotifierType),
		EntranceFee:                viper.GetUint64(EntranceFee),
		Interval:                   viper.GetInt64(Interval),
		KeeperInterval:             viper.GetInt64(KeeperInterval),
		OracleFulfillDelay:         viper.GetInt64(OracleFulfillDelay),
		OraclePrivateKey:           viper.GetString(OraclePrivateKey),
		OracleKeyHash:              viper.GetString(OracleKeyHash),
		OracleSubscriptionId:       viper.GetUint64(OracleSubscriptionId),
		OracleRequestConfirmations: viper.GetUint16(OracleRequestConfirmations),
		OracleCallbackGasLimit:     viper.GetUint32(OracleCallbackGasLimit),
		OracleNumWords:             viper.GetUint32(OracleNumWords),
		OracleBaseFee:              viper.GetUint64(OracleBaseFee),
		OracleGasPriceLink:         viper.GetUint64(OracleGasPriceLink),
		WalletInitialBalances:      viper.GetString(WalletInitialBalances),
		WalletRejectedRecipients:   viper.GetStringSlice(WalletRejectedRecipients),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf("event db type not supported, please select one of: %s", supportedEventDbs)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !supportedOracles.supports(c.OracleType) {
		return fmt.Errorf("oracle type not supported, please select one of: %s", supportedOracles)
	}
	if !supportedWallets.supports(c.WalletType) {
		return fmt.Errorf("wallet type not supported, please select one of: %s", supportedWallets)
	}
	if len(c.NotifierType) > 0 && !supportedNotifiers.supports(c.NotifierType) {
		return fmt.Errorf("notifier type not supported, please select one of: %s", supportedNotifiers)
	}
	if c.EntranceFee == 0 {
		return fmt.Errorf("invalid entrance fee, must be greater than 0")
	}
	if c.Interval < 1 {
		return fmt.Errorf("invalid interval, must be at least 1 second")
	}
	if c.KeeperInterval < 0 {
		return fmt.Errorf("invalid keeper interval, must be 0 (disabled) or positive")
	}
	if c.OracleFulfillDelay < 0 {
		return fmt.Errorf("invalid oracle fulfill delay, must not be negative")
	}
	if c.OracleNumWords == 0 {
		return fmt.Errorf("invalid oracle number of words, must be greater than 0")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.walletService(); err != nil {
		return err
	}
	if err := c.oracleService(); err != nil {
		return err
	}
	if err := c.notifierService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	case "sqlite":
		eventStoreConfig = []interface{}{c.EventDbDir}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	default:
		return fmt.Errorf("unknown db type")
	}

	if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
		return err
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) walletService() error {
	var svc ports.WalletService
	var err error
	switch c.WalletType {
	case "inmemory":
		var balances map[string]uint64
		balances, err = inmemorywallet.ParseBalances(c.WalletInitialBalances)
		if err != nil {
			return err
		}
		svc, err = inmemorywallet.NewService(balances, c.WalletRejectedRecipients)
	default:
		err = fmt.Errorf("unknown wallet type")
	}
	if err != nil {
		return err
	}

	c.wallet = svc
	return nil
}

func (c *Config) oracleService() error {
	if c.scheduler == nil {
		return fmt.Errorf("scheduler not set")
	}

	var svc ports.RandomnessOracle
	var err error
	switch c.OracleType {
	case "mock":
		svc = mockoracle.NewCoordinator(c.OracleBaseFee, c.OracleGasPriceLink)
	case "schnorr":
		svc, err = schnorroracle.NewOracle(
			c.OraclePrivateKey, c.scheduler,
			time.Duration(c.OracleFulfillDelay)*time.Second,
		)
	default:
		err = fmt.Errorf("unknown oracle type")
	}
	if err != nil {
		return err
	}

	c.oracle = svc
	return nil
}

func (c *Config) notifierService() error {
	switch c.NotifierType {
	case "":
		return nil
	case "nostr":
		c.notifier = nostrnotifier.New(0)
		return nil
	default:
		return fmt.Errorf("unknown notifier type")
	}
}

func (c *Config) appService() error {
	oracleParams := ports.OracleParams{
		KeyHash:              c.OracleKeyHash,
		SubscriptionId:       c.OracleSubscriptionId,
		RequestConfirmations: c.OracleRequestConfirmations,
		CallbackGasLimit:     c.OracleCallbackGasLimit,
		NumWords:             c.OracleNumWords,
	}

	svc, err := application.NewService(
		c.EntranceFee,
		time.Duration(c.Interval)*time.Second,
		time.Duration(c.KeeperInterval)*time.Second,
		oracleParams,
		c.repo, c.wallet, c.oracle, c.scheduler, c.notifier,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
