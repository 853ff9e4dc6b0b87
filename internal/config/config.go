package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteSource = "file:rewardclaims.db?_foreign_keys=on"
)

// LedgerConfig is handed to the external submission client. The claim core
// never reads it.
type LedgerConfig struct {
	RPCURL string
	APIKey string
}

type Config struct {
	Env            string
	Port           string
	DBDriver       string
	DBSource       string
	DBMaxConns     int32
	AcquireTimeout time.Duration
	RedisURL       string
	CacheTTL       time.Duration
	LogLevel       string
	Ledger         LedgerConfig
}

// Get returns the process configuration, loading it on first use. Concurrent
// first callers share one Load.
var Get = sync.OnceValues(Load)

// Load reads .env files and the environment into a new Config.
func Load() (Config, error) {
	loadDotenv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 0)
	v.SetDefault("DB_ACQUIRE_TIMEOUT", "5s")
	v.SetDefault("CLAIM_CACHE_TTL", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
	if err := v.BindEnv("ENVIRONMENT", "RUN_MODE", "ENVIRONMENT"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:            v.GetString("ENVIRONMENT"),
		Port:           v.GetString("SERVER_PORT"),
		DBDriver:       v.GetString("DB_DRIVER"),
		DBSource:       v.GetString("DB_SOURCE"),
		DBMaxConns:     v.GetInt32("DB_MAX_CONNS"),
		AcquireTimeout: v.GetDuration("DB_ACQUIRE_TIMEOUT"),
		RedisURL:       v.GetString("REDIS_URL"),
		CacheTTL:       v.GetDuration("CLAIM_CACHE_TTL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		Ledger: LedgerConfig{
			RPCURL: v.GetString("LEDGER_RPC_URL"),
			APIKey: v.GetString("LEDGER_RPC_API_KEY"),
		},
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBSource == "" {
			return Config{}, fmt.Errorf("DB_SOURCE environment variable is required")
		}
	case DriverSQLite:
		if cfg.DBSource == "" {
			cfg.DBSource = defaultSQLiteSource
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.DBMaxConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must not be negative")
	}
	if cfg.AcquireTimeout <= 0 {
		return Config{}, fmt.Errorf("DB_ACQUIRE_TIMEOUT must be positive")
	}

	return cfg, nil
}

// loadDotenv loads .env.<mode> and then .env. Variables already set win, so
// the process environment overrides the mode file, which overrides .env.
func loadDotenv() {
	mode := os.Getenv("RUN_MODE")
	if mode == "" {
		mode = os.Getenv("ENVIRONMENT")
	}
	if mode != "" {
		//nolint:errcheck
		godotenv.Load(".env." + mode)
	}
	//nolint:errcheck
	godotenv.Load()
}
