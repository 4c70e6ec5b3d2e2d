package update

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// SimpleUpdateName is the registry name of SimpleUpdate.
const SimpleUpdateName = "SIMPLE"

// SimpleUpdate refetches a series once its last refresh is ThresholdHours old.
// A failed refetch serves the stale copy, at most MaxStaleFallbacks times in a
// row per ticker (0 means no bound). Fatal failures are always returned.
type SimpleUpdate struct {
	ThresholdHours    int
	MaxStaleFallbacks int
	DropMissing       bool
	Deps              Deps

	now func() time.Time // injectable clock for testing

	mu       sync.Mutex
	failures map[string]int
}

// NewSimpleUpdate returns a SimpleUpdate that drops missing values on refetch.
func NewSimpleUpdate(thresholdHours, maxStaleFallbacks int, deps Deps) *SimpleUpdate {
	return &SimpleUpdate{
		ThresholdHours:    thresholdHours,
		MaxStaleFallbacks: maxStaleFallbacks,
		DropMissing:       true,
		Deps:              deps,
		now:               time.Now,
		failures:          make(map[string]int),
	}
}

func (u *SimpleUpdate) Name() string { return SimpleUpdateName }

func (u *SimpleUpdate) clock() time.Time {
	if u.now != nil {
		return u.now()
	}
	return time.Now()
}

func (u *SimpleUpdate) Update(ctx context.Context, full tickers.FullTicker, rec *models.SeriesRecord, provider interfaces.Provider, store interfaces.Storage) (models.Series, error) {
	logger := u.Deps.logger()

	lastRefresh := rec.LastRefresh
	if lastRefresh.IsZero() {
		ts, err := store.GetLastRefresh(ctx, full)
		if err != nil {
			return models.Series{}, fmt.Errorf("last refresh for %s: %w", full, err)
		}
		lastRefresh = ts
	}

	now := u.clock()
	if common.AgeHours(lastRefresh, now) < int64(u.ThresholdHours) {
		logger.Debug().Str("ticker", full.String()).Str("store", store.Code()).Msg("Series not stale")
		return store.Retrieve(ctx, rec)
	}

	deps := u.Deps
	deps.Now = u.clock
	series, failure := FetchAndWrite(ctx, deps, rec, provider, store, u.DropMissing)
	if failure == nil {
		u.reset(full)
		return series, nil
	}
	if failure.Written {
		// the store already holds the refetched series; serve it
		logger.Warn().Err(failure.Err).
			Str("ticker", full.String()).
			Msg("Series refetched and written; follow-up step failed")
		u.reset(full)
		return series, nil
	}

	switch failure.Kind {
	case FailureNoData:
		logger.Debug().Str("ticker", full.String()).Msg("Series has no new data; marking refreshed")
		u.reset(full)
		if err := store.SetLastRefresh(ctx, full, now); err != nil {
			return models.Series{}, fmt.Errorf("mark %s refreshed: %w", full, err)
		}
		return store.Retrieve(ctx, rec)
	case FailureFatal:
		return models.Series{}, failure
	}

	count := u.record(full)
	if u.MaxStaleFallbacks > 0 && count > u.MaxStaleFallbacks {
		logger.Error().Err(failure.Err).
			Str("ticker", full.String()).
			Int("consecutive_failures", count).
			Msg("Refetch keeps failing; no longer serving stale copy")
		return models.Series{}, failure
	}
	logger.Warn().Err(failure.Err).
		Str("ticker", full.String()).
		Str("kind", failure.Kind.String()).
		Int("consecutive_failures", count).
		Msg("Could not fetch from provider; using stored copy")
	return store.Retrieve(ctx, rec)
}

func (u *SimpleUpdate) record(full tickers.FullTicker) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failures == nil {
		u.failures = make(map[string]int)
	}
	u.failures[full.String()]++
	return u.failures[full.String()]
}

func (u *SimpleUpdate) reset(full tickers.FullTicker) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.failures, full.String())
}
