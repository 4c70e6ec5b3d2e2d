// Package update holds the fetch-and-write procedure and the update
// policies that decide when a cached series is refreshed.
package update

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// Deps carries the collaborators FetchAndWrite needs besides the provider
// and store.
type Deps struct {
	Hook       interfaces.ExternalFetchHook // optional
	Logger     *common.Logger
	EchoAccess bool
	Now        func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) logger() *common.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return common.NewSilentLogger()
}

// FetchAndWrite asks provider for rec's series and persists it to store.
// Companion series from a table fetch are persisted too, even when the
// requested series itself was not found.
func FetchAndWrite(ctx context.Context, deps Deps, rec *models.SeriesRecord, provider interfaces.Provider, store interfaces.Storage, dropMissing bool) (models.Series, *FetchFailure) {
	info := provider.Info()
	logger := deps.logger()

	if info.External && deps.Hook != nil {
		deps.Hook.BeforeExternalFetch(ctx, rec)
	}
	if info.PushOnly {
		return models.Series{}, &FetchFailure{
			Kind: FailureFatal,
			Err:  fmt.Errorf("%w: %s (provider %s)", models.ErrPushOnly, rec.FullTicker, info.Code),
		}
	}
	if deps.EchoAccess {
		logger.Info().Str("ticker", rec.FullTicker.String()).Str("provider", info.Code).Msg("Provider dispatch")
	}

	// the provider gets its own copy; nothing it does to it leaks back
	result, err := provider.Fetch(ctx, rec.Clone())
	if err != nil {
		if errors.Is(err, models.ErrTickerNotFound) && result.TableWasFetched() {
			if werr := writeTable(ctx, deps, result.Table, rec, store, dropMissing); werr != nil {
				return models.Series{}, Classify(werr)
			}
		}
		return models.Series{}, Classify(err)
	}
	if result == nil {
		return models.Series{}, &FetchFailure{
			Kind: FailureRecoverable,
			Err:  fmt.Errorf("provider %s returned no result for %s", info.Code, rec.FullTicker),
		}
	}

	out := adopt(rec, result.Record)
	series := result.Series.WithTicker(rec.FullTicker.String())
	if dropMissing {
		series = series.DropMissing()
	}
	if err := write(ctx, store, series, out); err != nil {
		return models.Series{}, Classify(err)
	}
	if err := stamp(ctx, deps, store, out.FullTicker); err != nil {
		return series, written(err)
	}

	if result.TableWasFetched() {
		if err := writeTable(ctx, deps, result.Table, rec, store, dropMissing); err != nil {
			return series, written(err)
		}
	}

	logger.Debug().
		Str("ticker", rec.FullTicker.String()).
		Str("store", store.Code()).
		Int("points", series.Len()).
		Msg("Series fetched and written")
	return series, nil
}

// adopt merges a provider-returned record over the request's record. The
// identity slots and the store's aliases are kept from the request.
func adopt(rec, fetched *models.SeriesRecord) *models.SeriesRecord {
	if fetched == nil {
		return rec.Clone()
	}
	out := fetched.Clone()
	out.Exists = rec.Exists
	out.SeriesID = rec.SeriesID
	out.FullTicker = rec.FullTicker
	out.ProviderCode = rec.ProviderCode
	out.QueryTicker = rec.QueryTicker
	if out.LocalTicker.IsZero() {
		out.LocalTicker = rec.LocalTicker
	}
	if out.DataTypeTicker.IsZero() {
		out.DataTypeTicker = rec.DataTypeTicker
	}
	out.LastRefresh = rec.LastRefresh
	out.LastUpdate = rec.LastUpdate
	out.Normalise()
	return out
}

// persist writes one series and stamps it.
func persist(ctx context.Context, deps Deps, store interfaces.Storage, series models.Series, rec *models.SeriesRecord) error {
	if err := write(ctx, store, series, rec); err != nil {
		return err
	}
	return stamp(ctx, deps, store, rec.FullTicker)
}

func write(ctx context.Context, store interfaces.Storage, series models.Series, rec *models.SeriesRecord) error {
	if err := store.Write(ctx, series, rec, true); err != nil {
		return fmt.Errorf("write %s to %s: %w", rec.FullTicker, store.Code(), err)
	}
	return nil
}

func stamp(ctx context.Context, deps Deps, store interfaces.Storage, full tickers.FullTicker) error {
	now := deps.now()
	if !store.SetsLastUpdateAutomatically() {
		if err := store.SetLastUpdate(ctx, full, now); err != nil {
			return fmt.Errorf("stamp last update for %s: %w", full, err)
		}
	}
	if err := store.SetLastRefresh(ctx, full, now); err != nil {
		return fmt.Errorf("stamp last refresh for %s: %w", full, err)
	}
	return nil
}

// written marks a failure that happened after the primary series was stored.
func written(err error) *FetchFailure {
	f := Classify(err)
	f.Written = true
	return f
}

// writeTable persists every companion series except the requested one.
func writeTable(ctx context.Context, deps Deps, table map[string]models.TableEntry, rec *models.SeriesRecord, store interfaces.Storage, dropMissing bool) error {
	primary := rec.FullTicker.String()
	written := 0
	for key, entry := range table {
		if key == primary || entry.Record == nil || entry.Record.FullTicker.IsZero() {
			continue
		}
		if entry.Record.FullTicker.String() == primary {
			continue
		}
		series := entry.Series.WithTicker(entry.Record.FullTicker.String())
		if dropMissing {
			series = series.DropMissing()
		}
		companion := entry.Record.Clone()
		companion.Normalise()
		if err := persist(ctx, deps, store, series, companion); err != nil {
			return fmt.Errorf("table write: %w", err)
		}
		written++
	}
	deps.logger().Debug().Str("ticker", primary).Int("companions", written).Msg("Table series written")
	return nil
}
