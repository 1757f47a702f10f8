package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	datadir := t.TempDir()
	t.Setenv("RAFFLE_DATADIR", datadir)
	t.Setenv("RAFFLE_ENTRANCE_FEE", "100")
	t.Setenv("RAFFLE_INTERVAL", "60")
	t.Setenv("RAFFLE_ORACLE_TYPE", "mock")
	t.Setenv("RAFFLE_WALLET_INITIAL_BALANCES", "alice:1000,bob:1000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, datadir, cfg.Datadir)
	require.Equal(t, uint32(DefaultPort), cfg.Port)
	require.Equal(t, uint64(100), cfg.EntranceFee)
	require.Equal(t, int64(60), cfg.Interval)
	require.Equal(t, int64(defaultKeeperInterval), cfg.KeeperInterval)
	require.Equal(t, "mock", cfg.OracleType)
	require.Equal(t, "badger", cfg.DbType)
	require.Equal(t, uint32(1), cfg.OracleNumWords)
	require.NotContains(t, cfg.String(), "OraclePrivateKey")
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fixtures := []struct {
			name        string
			eventDbType string
			dbType      string
			oracleType  string
		}{
			{"badger", "badger", "badger", "mock"},
			{"sqlite", "sqlite", "sqlite", "schnorr"},
			{"mixed", "badger", "sqlite", "schnorr"},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				cfg := validConfig(t)
				cfg.EventDbType = f.eventDbType
				cfg.DbType = f.dbType
				cfg.OracleType = f.oracleType

				err := cfg.Validate()
				require.NoError(t, err)
				defer cfg.repo.Close()

				svc, err := cfg.AppService()
				require.NoError(t, err)
				require.NotNil(t, svc)

				again, err := cfg.AppService()
				require.NoError(t, err)
				require.Equal(t, svc, again)
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			name   string
			mutate func(c *Config)
		}{
			{"event db type", func(c *Config) { c.EventDbType = "postgres" }},
			{"db type", func(c *Config) { c.DbType = "postgres" }},
			{"scheduler type", func(c *Config) { c.SchedulerType = "block" }},
			{"oracle type", func(c *Config) { c.OracleType = "chainlink" }},
			{"wallet type", func(c *Config) { c.WalletType = "ocean" }},
			{"notifier type", func(c *Config) { c.NotifierType = "email" }},
			{"entrance fee", func(c *Config) { c.EntranceFee = 0 }},
			{"interval", func(c *Config) { c.Interval = 0 }},
			{"keeper interval", func(c *Config) { c.KeeperInterval = -1 }},
			{"fulfill delay", func(c *Config) { c.OracleFulfillDelay = -1 }},
			{"num words", func(c *Config) { c.OracleNumWords = 0 }},
			{"initial balances", func(c *Config) { c.WalletInitialBalances = "alice" }},
			{"oracle key", func(c *Config) { c.OraclePrivateKey = "zz" }},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				cfg := validConfig(t)
				f.mutate(cfg)

				err := cfg.Validate()
				if cfg.repo != nil {
					defer cfg.repo.Close()
				}
				require.Error(t, err)
			})
		}
	})
}

func validConfig(t *testing.T) *Config {
	dir := t.TempDir()
	return &Config{
		Datadir:        dir,
		DbType:         "badger",
		EventDbType:    "badger",
		DbDir:          dir,
		EventDbDir:     dir,
		SchedulerType:  "gocron",
		OracleType:     "schnorr",
		WalletType:     "inmemory",
		EntranceFee:    100,
		Interval:       60,
		KeeperInterval: 5,
		OracleNumWords: 1,
	}
}
