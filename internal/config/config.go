// Package config собирает настройки сервиса из флагов и переменных окружения.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type HTTP struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Store struct {
	Driver         string
	DSN            string
	MigrateOnStart bool
}

type Logger struct {
	LogLevel string
}

type Receipt struct {
	TaxRate      decimal.Decimal
	StoreName    string
	StoreAddress string
}

type Session struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type Seed struct {
	Enabled bool
}

type Config struct {
	HTTP    HTTP
	Store   Store
	Logger  Logger
	Receipt Receipt
	Session Session
	Seed    Seed
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, defaultValue.String()))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

// Load: значения по умолчанию берутся из окружения, флаги командной строки их перекрывают
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("pharmacy", flag.ContinueOnError)

	var cfg Config
	var taxRate string
	fs.StringVar(&cfg.HTTP.Addr, "a", getEnv("PHARMACY_HTTP_ADDR", ":8080"), "HTTP listen address")
	fs.DurationVar(&cfg.HTTP.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "graceful shutdown timeout")
	fs.StringVar(&cfg.Store.Driver, "store", getEnv("PHARMACY_STORE_DRIVER", DriverMemory), "storage driver: memory or postgres")
	fs.StringVar(&cfg.Store.DSN, "d", getEnv("PHARMACY_DATABASE_DSN", ""), "postgres DSN")
	fs.BoolVar(&cfg.Store.MigrateOnStart, "migrate", getEnvBool("PHARMACY_MIGRATE", true), "apply schema migrations on start")
	fs.StringVar(&cfg.Logger.LogLevel, "l", getEnv("PHARMACY_LOG_LEVEL", "info"), "log level")
	fs.StringVar(&taxRate, "tax-rate", getEnv("PHARMACY_TAX_RATE", "0.10"), "receipt tax rate")
	fs.StringVar(&cfg.Receipt.StoreName, "store-name", getEnv("PHARMACY_STORE_NAME", "Al-Khwarizmi Pharmacy"), "name printed on receipts")
	fs.StringVar(&cfg.Receipt.StoreAddress, "store-address", getEnv("PHARMACY_STORE_ADDRESS", "Baghdad University"), "address printed on receipts")
	fs.DurationVar(&cfg.Session.IdleTTL, "session-ttl", getEnvDuration("PHARMACY_SESSION_TTL", 30*time.Minute), "idle order session lifetime")
	fs.DurationVar(&cfg.Session.SweepInterval, "session-sweep", time.Minute, "idle session sweep interval")
	fs.BoolVar(&cfg.Seed.Enabled, "seed", getEnvBool("PHARMACY_SEED", false), "load demo catalog on start")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid tax rate %q: %w", taxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("tax rate %s out of range [0, 1)", rate)
	}
	cfg.Receipt.TaxRate = rate

	if cfg.Session.IdleTTL <= 0 || cfg.Session.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("session ttl and sweep interval must be positive")
	}

	switch cfg.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Store.DSN == "" {
			return Config{}, fmt.Errorf("postgres driver requires a DSN (-d or PHARMACY_DATABASE_DSN)")
		}
	default:
		return Config{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return cfg, nil
}
