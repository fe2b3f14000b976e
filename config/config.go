package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Market   MarketConfig   `mapstructure:"market"`
	Events   EventsConfig   `mapstructure:"events"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MarketConfig describes the tradable universe: the settlement currency,
// the credit type catalog, and the seed conversion rates loaded at startup.
// Rates supplied by the external rate-table collaborator at runtime take
// precedence over seeds of the same version.
type MarketConfig struct {
	Currency    string             `mapstructure:"currency"`
	CreditTypes []CreditTypeConfig `mapstructure:"credit_types"`
	Rates       []RateConfig       `mapstructure:"rates"`
}

type CreditTypeConfig struct {
	Code string `mapstructure:"code"`
	Name string `mapstructure:"name"`
	Unit string `mapstructure:"unit"` // e.g. "kg", "litre", "item"
}

type RateConfig struct {
	CreditType     string `mapstructure:"credit_type"`
	Subtype        string `mapstructure:"subtype"`
	CreditsPerUnit string `mapstructure:"credits_per_unit"` // decimal string
	Version        int    `mapstructure:"version"`
	EffectiveFrom  string `mapstructure:"effective_from"` // RFC3339, empty = immediately
}

// EventsConfig configures the Redis Streams event sink.
type EventsConfig struct {
	Stream     string `mapstructure:"stream"`
	SigningKey string `mapstructure:"signing_key"` // HMAC key for payload signatures
	MaxLen     int64  `mapstructure:"max_len"`     // stream trim threshold, 0 = unbounded
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CLX_ (Credit Ledger
// eXchange). Nested keys use underscore: CLX_DATABASE_HOST, CLX_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "credit_exchange")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("market.currency", "INR")
	v.SetDefault("events.stream", "credit-exchange:events")
	v.SetDefault("events.signing_key", "")
	v.SetDefault("events.max_len", 100000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CLX_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CLX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required; env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
