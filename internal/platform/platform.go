// Package platform is the fetch entry point. A Platform owns the provider,
// store and policy registries and runs resolve, cache check, fetch and
// persist for one ticker at a time.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/providers"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/bobmcallan/econdata/internal/update"
)

// Platform holds the registries and collaborators used by Fetch.
type Platform struct {
	Providers  *providers.Registry
	Stores     *storage.Registry
	Policies   *update.Registry
	Hook       interfaces.ExternalFetchHook
	Logger     *common.Logger
	EchoAccess bool
	Now        func() time.Time

	// mu serialises whole fetch sequences; providers and stores are shared.
	mu sync.Mutex
}

// New returns a Platform over the given registries. The hook defaults to a
// LogHook.
func New(provs *providers.Registry, stores *storage.Registry, policies *update.Registry, logger *common.Logger) *Platform {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Platform{
		Providers: provs,
		Stores:    stores,
		Policies:  policies,
		Hook:      NewLogHook(logger),
		Logger:    logger,
		Now:       time.Now,
	}
}

// FetchOptions selects the store and policy for one fetch. The zero value
// uses the default store and policy and drops missing values.
type FetchOptions struct {
	Store       string
	Policy      string
	KeepMissing bool
}

func (o FetchOptions) storeCode() string {
	if o.Store == "" {
		return storage.DefaultCode
	}
	return o.Store
}

// FetchDefault fetches raw from the default store, dropping missing values.
func (p *Platform) FetchDefault(ctx context.Context, raw string) (models.Series, error) {
	return p.Fetch(ctx, raw, FetchOptions{})
}

// Fetch returns the series for raw, serving it from the store when present
// and fetching it from its provider otherwise. Every error is a
// *models.FetchError.
func (p *Platform) Fetch(ctx context.Context, raw string, opts FetchOptions) (models.Series, error) {
	series, _, err := p.FetchWithRecord(ctx, raw, opts)
	return series, err
}

// FetchWithRecord is Fetch that also returns the series record as stored
// after the fetch.
func (p *Platform) FetchWithRecord(ctx context.Context, raw string, opts FetchOptions) (models.Series, *models.SeriesRecord, error) {
	storeCode := opts.storeCode()
	fail := func(collaborator string, err error) (models.Series, *models.SeriesRecord, error) {
		return models.Series{}, nil, &models.FetchError{Ticker: raw, Store: storeCode, Collaborator: collaborator, Err: err}
	}

	// parse before touching any registry
	if _, err := tickers.Parse(raw); err != nil {
		return fail("ticker", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	store, err := p.Stores.Get(storeCode)
	if err != nil {
		return fail("storage registry", err)
	}
	storeCode = store.Code()

	rec, err := store.GetMetadata(ctx, raw)
	if err != nil {
		return fail("store "+storeCode, err)
	}
	if err := rec.Validate(); err != nil {
		return fail("store "+storeCode, err)
	}
	if rec.FullTicker.IsZero() {
		return fail("store "+storeCode, models.NotFound(raw, storeCode))
	}

	provider, err := p.Providers.Get(rec.ProviderCode.String())
	if err != nil {
		return fail("provider registry", err)
	}
	providerName := "provider " + provider.Info().Code

	if rec.Exists {
		policy, err := p.Policies.Get(opts.Policy)
		if err != nil {
			return fail("policy registry", err)
		}
		series, err := policy.Update(ctx, rec.FullTicker, rec, provider, store)
		if err != nil {
			return fail("policy "+policy.Name(), err)
		}
		return series, p.reload(ctx, store, rec), nil
	}

	p.Logger.Debug().Str("ticker", rec.FullTicker.String()).Str("store", storeCode).Msg("Cache miss")
	series, failure := update.FetchAndWrite(ctx, p.deps(), rec, provider, store, !opts.KeepMissing)
	if failure != nil && !failure.Written {
		return fail(providerName, failure)
	}
	if failure != nil {
		p.Logger.Warn().Err(failure.Err).Str("ticker", rec.FullTicker.String()).Str("store", storeCode).
			Msg("Series written; follow-up step failed")
	}
	return series, p.reload(ctx, store, rec), nil
}

// reload re-reads the record after a fetch, falling back to rec.
func (p *Platform) reload(ctx context.Context, store interfaces.Storage, rec *models.SeriesRecord) *models.SeriesRecord {
	fresh, err := store.GetMetadata(ctx, rec.FullTicker.String())
	if err != nil {
		p.Logger.Warn().Err(err).Str("ticker", rec.FullTicker.String()).Msg("Could not reload series record")
		return rec
	}
	return fresh
}

func (p *Platform) deps() update.Deps {
	return update.Deps{Hook: p.Hook, Logger: p.Logger, EchoAccess: p.EchoAccess, Now: p.Now}
}

// Metadata resolves raw against a store without fetching.
func (p *Platform) Metadata(ctx context.Context, raw, storeCode string) (*models.SeriesRecord, error) {
	if storeCode == "" {
		storeCode = storage.DefaultCode
	}
	if _, err := tickers.Parse(raw); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	store, err := p.Stores.Get(storeCode)
	if err != nil {
		return nil, err
	}
	return store.GetMetadata(ctx, raw)
}

// SeriesURL returns a web page for raw's series.
func (p *Platform) SeriesURL(ctx context.Context, raw, storeCode string) (string, error) {
	rec, err := p.Metadata(ctx, raw, storeCode)
	if err != nil {
		return "", err
	}
	provider, err := p.Providers.Get(rec.ProviderCode.String())
	if err != nil {
		return "", err
	}
	return providers.SeriesURL(provider, rec), nil
}

// Transfer copies one stored series between two stores.
func (p *Platform) Transfer(ctx context.Context, raw, srcCode, dstCode string) error {
	full, err := tickers.NewFullTicker(raw)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	src, err := p.Stores.Get(srcCode)
	if err != nil {
		return err
	}
	dst, err := p.Stores.Get(dstCode)
	if err != nil {
		return err
	}
	if src.Code() == dst.Code() {
		return fmt.Errorf("%w: transfer %s from %s to itself", models.ErrConfiguration, full, src.Code())
	}
	if err := storage.Transfer(ctx, full, src, dst); err != nil {
		return err
	}
	p.Logger.Info().Str("ticker", full.String()).Str("from", src.Code()).Str("to", dst.Code()).Msg("Series transferred")
	return nil
}

// Close closes every registered store.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.Stores != nil {
		errs = append(errs, p.Stores.Close())
	}
	if c, ok := p.Hook.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
