// Package memory is an in-process store. It keeps nothing across restarts and
// backs the "MEMORY" store code and the orchestration tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the store code used when none is given.
const DefaultCode = "MEMORY"

type entry struct {
	series models.Series
	rec    *models.SeriesRecord
}

// Store holds series in maps keyed by full ticker.
type Store struct {
	mu      sync.RWMutex
	code    string
	entries map[string]entry
	aliases map[string]tickers.FullTicker
}

// NewStore returns an empty store.
func NewStore(code string) *Store {
	if code == "" {
		code = DefaultCode
	}
	return &Store{
		code:    code,
		entries: make(map[string]entry),
		aliases: make(map[string]tickers.FullTicker),
	}
}

func (s *Store) Code() string { return s.code }

func (s *Store) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, s, raw)
}

// ResolveFull returns the stored record, or an empty record with Exists=false.
func (s *Store) ResolveFull(_ context.Context, full tickers.FullTicker) (*models.SeriesRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[full.String()]
	if !ok {
		return models.NewRecordFromFull(full), nil
	}
	rec := e.rec.Clone()
	rec.Exists = true
	return rec, nil
}

// SetAlias maps a local ticker to a full ticker.
func (s *Store) SetAlias(_ context.Context, local tickers.LocalTicker, full tickers.FullTicker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[local.String()] = full
	return nil
}

func (s *Store) ResolveLocal(ctx context.Context, local tickers.LocalTicker) (*models.SeriesRecord, error) {
	s.mu.RLock()
	full, ok := s.aliases[local.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, models.NotFound(local.String(), s.code)
	}
	rec, err := s.ResolveFull(ctx, full)
	if err != nil {
		return nil, err
	}
	rec.LocalTicker = local
	return rec, nil
}

func (s *Store) Has(_ context.Context, full tickers.FullTicker) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[full.String()]
	return ok, nil
}

func (s *Store) Retrieve(_ context.Context, rec *models.SeriesRecord) (models.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[rec.FullTicker.String()]
	if !ok {
		return models.Series{}, models.NotFound(rec.FullTicker.String(), s.code)
	}
	return e.series.Clone(), nil
}

func (s *Store) Write(_ context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error {
	if !overwrite {
		return storage.ErrOverwriteRequired
	}
	if rec.FullTicker.IsZero() {
		return fmt.Errorf("%w: write without full ticker", models.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := rec.Clone()
	stored.Exists = false
	if prev, ok := s.entries[rec.FullTicker.String()]; ok {
		if stored.LastRefresh.IsZero() {
			stored.LastRefresh = prev.rec.LastRefresh
		}
		if stored.LastUpdate.IsZero() {
			stored.LastUpdate = prev.rec.LastUpdate
		}
	}
	s.entries[rec.FullTicker.String()] = entry{series: series.Clone(), rec: stored}
	return nil
}

func (s *Store) Delete(_ context.Context, rec *models.SeriesRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.FullTicker.String()
	if _, ok := s.entries[key]; !ok {
		return models.NotFound(key, s.code)
	}
	delete(s.entries, key)
	for alias, full := range s.aliases {
		if full.String() == key {
			delete(s.aliases, alias)
		}
	}
	return nil
}

func (s *Store) GetLastRefresh(_ context.Context, full tickers.FullTicker) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[full.String()]
	if !ok {
		return time.Time{}, models.NotFound(full.String(), s.code)
	}
	return e.rec.LastRefresh, nil
}

func (s *Store) SetLastRefresh(_ context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.stamp(full, func(r *models.SeriesRecord) { r.LastRefresh = ts })
}

func (s *Store) SetLastUpdate(_ context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.stamp(full, func(r *models.SeriesRecord) { r.LastUpdate = ts })
}

func (s *Store) stamp(full tickers.FullTicker, fn func(*models.SeriesRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[full.String()]
	if !ok {
		return models.NotFound(full.String(), s.code)
	}
	fn(e.rec)
	return nil
}

// SetsLastUpdateAutomatically is false: the caller stamps after each write.
func (s *Store) SetsLastUpdateAutomatically() bool { return false }

func (s *Store) Close() error { return nil }
