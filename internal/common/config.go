// Package common provides shared utilities for econdata
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for econdata
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Platform    PlatformConfig  `toml:"platform"`
	Update      UpdateConfig    `toml:"update"`
	Storage     StorageConfig   `toml:"storage"`
	Providers   ProvidersConfig `toml:"providers"`
	Events      EventsConfig    `toml:"events"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PlatformConfig selects the defaults the fetch orchestrator resolves against.
type PlatformConfig struct {
	DefaultStore  string `toml:"default_store"`
	SQLStore      string `toml:"sql_store"` // target of the "SQL" store marker
	DefaultPolicy string `toml:"default_policy"`
	EchoAccess    bool   `toml:"echo_access"`
}

// UpdateConfig holds SimpleUpdate settings
type UpdateConfig struct {
	ThresholdHours    int `toml:"threshold_hours"`
	MaxStaleFallbacks int `toml:"max_stale_fallbacks"` // 0 = unbounded
}

// StorageConfig holds one section per storage backend. A backend with an
// empty path/address/dsn is not registered.
type StorageConfig struct {
	Text      PathConfig     `toml:"text"`
	Badger    PathConfig     `toml:"badger"`
	Postgres  PostgresConfig `toml:"postgres"`
	SurrealDB SurrealConfig  `toml:"surrealdb"`
	Redis     RedisConfig    `toml:"redis"`
}

// PathConfig holds the directory of a file-backed store.
type PathConfig struct {
	Path string `toml:"path"`
}

// PostgresConfig holds the relational store connection
type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// SurrealConfig holds SurrealDB connection settings
type SurrealConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// ProvidersConfig holds provider settings and the provider code table
type ProvidersConfig struct {
	Codes    ProviderCodes  `toml:"codes"`
	FRED     FREDConfig     `toml:"fred"`
	DBnomics DBnomicsConfig `toml:"dbnomics"`
	StatCan  StatCanConfig  `toml:"statcan"`
}

// ProviderCodes maps each built-in provider to the code used in full tickers.
type ProviderCodes struct {
	Test     string `toml:"test"`
	User     string `toml:"user"`
	Push     string `toml:"push"`
	FRED     string `toml:"fred"`
	DBnomics string `toml:"dbnomics"`
	StatCan  string `toml:"statcan"`
}

// FREDConfig holds FRED API configuration
type FREDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FREDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// DBnomicsConfig holds DBnomics API configuration
type DBnomicsConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *DBnomicsConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// StatCanConfig holds the table download directory
type StatCanConfig struct {
	Directory string `toml:"directory"`
	ZipTail   string `toml:"zip_tail"`
}

// EventsConfig holds the Kafka publisher settings. No brokers disables publishing.
type EventsConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Platform: PlatformConfig{
			DefaultStore:  "TEXT",
			SQLStore:      "PG",
			DefaultPolicy: "NOUPDATE",
		},
		Update: UpdateConfig{
			ThresholdHours:    DefaultThresholdHours,
			MaxStaleFallbacks: DefaultMaxStaleFallbacks,
		},
		Storage: StorageConfig{
			Text:   PathConfig{Path: "data/text"},
			Badger: PathConfig{Path: "data/badger"},
			SurrealDB: SurrealConfig{
				Namespace: "econdata",
				Database:  "series",
				Username:  "root",
				Password:  "root",
			},
			Redis: RedisConfig{Prefix: "econdata:"},
		},
		Providers: ProvidersConfig{
			Codes: ProviderCodes{
				Test:     "TEST",
				User:     "U",
				Push:     "PUSH",
				FRED:     "F",
				DBnomics: "D",
				StatCan:  "CCSV",
			},
			FRED: FREDConfig{
				BaseURL:   "https://api.stlouisfed.org/fred",
				RateLimit: 2,
				Timeout:   "30s",
			},
			DBnomics: DBnomicsConfig{
				BaseURL:   "https://api.db.nomics.world/v22",
				RateLimit: 5,
				Timeout:   "30s",
			},
			StatCan: StatCanConfig{
				Directory: "data/statcan",
				ZipTail:   "-eng.zip",
			},
		},
		Events: EventsConfig{
			Topic: "econdata.fetches",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ECONDATA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("ECONDATA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("ECONDATA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("ECONDATA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("ECONDATA_DATA_PATH"); path != "" {
		config.Storage.Text.Path = filepath.Join(path, "text")
		config.Storage.Badger.Path = filepath.Join(path, "badger")
		config.Providers.StatCan.Directory = filepath.Join(path, "statcan")
	}

	if v := os.Getenv("ECONDATA_DEFAULT_STORE"); v != "" {
		config.Platform.DefaultStore = strings.ToUpper(v)
	}
	if v := os.Getenv("ECONDATA_DEFAULT_POLICY"); v != "" {
		config.Platform.DefaultPolicy = strings.ToUpper(v)
	}
	if v := os.Getenv("ECONDATA_ECHO_ACCESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Platform.EchoAccess = b
		}
	}

	if v := os.Getenv("ECONDATA_POSTGRES_DSN"); v != "" {
		config.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("ECONDATA_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}
	if v := os.Getenv("ECONDATA_REDIS_ADDR"); v != "" {
		config.Storage.Redis.Addr = v
	}
	if v := os.Getenv("ECONDATA_KAFKA_BROKERS"); v != "" {
		config.Events.Brokers = splitList(v)
	}

	for _, name := range []string{"FRED_API_KEY", "ECONDATA_FRED_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Providers.FRED.APIKey = v
			break
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
