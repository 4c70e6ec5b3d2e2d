// Package app wires configuration, logging, providers, stores and update
// policies into a Platform. It is the shared core of every econdata command.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/events"
	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/platform"
	"github.com/bobmcallan/econdata/internal/providers"
	"github.com/bobmcallan/econdata/internal/providers/dbnomics"
	"github.com/bobmcallan/econdata/internal/providers/example"
	"github.com/bobmcallan/econdata/internal/providers/fred"
	"github.com/bobmcallan/econdata/internal/providers/push"
	"github.com/bobmcallan/econdata/internal/providers/statcan"
	"github.com/bobmcallan/econdata/internal/providers/user"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/storage/badger"
	"github.com/bobmcallan/econdata/internal/storage/memory"
	"github.com/bobmcallan/econdata/internal/storage/postgres"
	"github.com/bobmcallan/econdata/internal/storage/redis"
	"github.com/bobmcallan/econdata/internal/storage/surrealdb"
	"github.com/bobmcallan/econdata/internal/storage/textfs"
	"github.com/bobmcallan/econdata/internal/update"
)

// App holds the loaded configuration and the initialised platform.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Platform    *platform.Platform
	User        *user.Provider
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and initialises the platform.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, ECONDATA_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("ECONDATA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "econdata.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/econdata.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppWithConfig(context.Background(), config, logger)
}

// NewAppWithConfig initialises the platform from an already loaded config.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	stores, err := buildStores(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provs, userProvider := buildProviders(config, logger)

	simple := update.NewSimpleUpdate(
		config.Update.ThresholdHours,
		config.Update.MaxStaleFallbacks,
		update.Deps{Logger: logger, EchoAccess: config.Platform.EchoAccess},
	)
	policies := update.NewRegistry(config.Platform.DefaultPolicy)
	policies.Register(update.NoUpdate{})
	policies.Register(simple)
	if _, err := policies.Get(update.DefaultName); err != nil {
		stores.Close()
		return nil, fmt.Errorf("invalid default policy: %w", err)
	}

	p := platform.New(provs, stores, policies, logger)
	p.EchoAccess = config.Platform.EchoAccess
	p.Hook = buildHook(config, logger)

	// Refetches through SimpleUpdate share the platform hook.
	simple.Deps.Hook = p.Hook

	logger.Info().
		Strs("providers", provs.Codes()).
		Strs("stores", stores.Codes()).
		Str("default_store", config.Platform.DefaultStore).
		Str("default_policy", config.Platform.DefaultPolicy).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return &App{
		Config:      config,
		Logger:      logger,
		Platform:    p,
		User:        userProvider,
		StartupTime: startupStart,
	}, nil
}

func buildProviders(config *common.Config, logger *common.Logger) (*providers.Registry, *user.Provider) {
	codes := config.Providers.Codes
	reg := providers.NewRegistry()

	reg.RegisterProvider(example.New(codes.Test))
	userProvider := user.New(codes.User)
	reg.RegisterProvider(userProvider)
	reg.RegisterProvider(push.New(codes.Push))

	fredCfg := config.Providers.FRED
	if fredCfg.APIKey == "" {
		logger.Warn().Msg("FRED API key not configured - FRED fetches will fail")
	}
	reg.RegisterProvider(fred.NewProvider(codes.FRED, fred.NewClient(fredCfg.APIKey,
		fred.WithBaseURL(fredCfg.BaseURL),
		fred.WithLogger(logger),
		fred.WithRateLimit(fredCfg.RateLimit),
		fred.WithTimeout(fredCfg.GetTimeout()),
	), logger))

	dbCfg := config.Providers.DBnomics
	reg.RegisterProvider(dbnomics.NewProvider(codes.DBnomics, dbnomics.NewClient(
		dbnomics.WithBaseURL(dbCfg.BaseURL),
		dbnomics.WithLogger(logger),
		dbnomics.WithRateLimit(dbCfg.RateLimit),
		dbnomics.WithTimeout(dbCfg.GetTimeout()),
	), logger))

	scCfg := config.Providers.StatCan
	reg.RegisterProvider(statcan.NewProvider(codes.StatCan, scCfg.Directory, scCfg.ZipTail, logger))

	return reg, userProvider
}

// buildStores registers every backend with a configured location. The
// in-process MEMORY store is always available.
func buildStores(ctx context.Context, config *common.Config, logger *common.Logger) (*storage.Registry, error) {
	reg := storage.NewRegistry(config.Platform.DefaultStore, config.Platform.SQLStore)
	reg.Register(memory.DefaultCode, memory.NewStore(memory.DefaultCode))

	fail := func(err error) (*storage.Registry, error) {
		return nil, errors.Join(err, reg.Close())
	}

	cfg := config.Storage
	if cfg.Text.Path != "" {
		s, err := textfs.NewStore(logger, textfs.DefaultCode, cfg.Text.Path)
		if err != nil {
			return fail(err)
		}
		reg.Register(s.Code(), s)
	}
	if cfg.Badger.Path != "" {
		s, err := badger.NewStore(logger, badger.DefaultCode, cfg.Badger.Path)
		if err != nil {
			return fail(err)
		}
		reg.Register(s.Code(), s)
	}
	if cfg.Postgres.DSN != "" {
		s, err := postgres.NewStore(ctx, logger, postgres.DefaultCode, cfg.Postgres.DSN)
		if err != nil {
			return fail(err)
		}
		reg.Register(s.Code(), s)
	}
	if cfg.SurrealDB.Address != "" {
		db, err := surrealdb.Connect(ctx, cfg.SurrealDB)
		if err != nil {
			return fail(err)
		}
		s, err := surrealdb.NewStore(ctx, db, logger, surrealdb.DefaultCode)
		if err != nil {
			db.Close(ctx)
			return fail(err)
		}
		reg.Register(s.Code(), s)
	}
	if cfg.Redis.Addr != "" {
		s, err := redis.NewStore(ctx, logger, redis.DefaultCode, cfg.Redis)
		if err != nil {
			return fail(err)
		}
		reg.Register(s.Code(), s)
	}

	if _, err := reg.Get(storage.DefaultCode); err != nil {
		return fail(fmt.Errorf("default store: %w", err))
	}
	return reg, nil
}

func buildHook(config *common.Config, logger *common.Logger) interfaces.ExternalFetchHook {
	hooks := platform.Hooks{platform.NewLogHook(logger)}
	if len(config.Events.Brokers) > 0 {
		producer := events.NewProducer(config.Events.Brokers, config.Events.Topic)
		hooks = append(hooks, platform.NewPublishHook(producer, logger))
		logger.Info().Strs("brokers", config.Events.Brokers).Str("topic", config.Events.Topic).Msg("Fetch events enabled")
	}
	return hooks
}

// Close releases every store and the event producer.
func (a *App) Close() error {
	return a.Platform.Close()
}
