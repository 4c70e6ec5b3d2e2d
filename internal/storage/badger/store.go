// Package badger provides a BadgerHold-based series store with local-ticker
// aliases and datatype lookups.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the store code used when none is given.
const DefaultCode = "BADGER"

// seriesDoc is keyed by full ticker. LocalTicker and DataType are copied out
// of the record so they can be queried.
type seriesDoc struct {
	FullTicker   string
	LocalTicker  string `badgerhold:"index"`
	DataType     string `badgerhold:"index"`
	Record       models.SeriesRecord
	Observations []models.Observation
}

// Store wraps a BadgerHold database connection.
type Store struct {
	code   string
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, code, path string) (*Store, error) {
	if code == "" {
		code = DefaultCode
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger
	// tickers encode as text, which gob does not use
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("code", code).Str("path", path).Msg("BadgerHold store opened")

	return &Store{code: code, db: db, logger: logger}, nil
}

func (s *Store) Code() string { return s.code }

func (s *Store) get(full tickers.FullTicker) (*seriesDoc, error) {
	var doc seriesDoc
	if err := s.db.Get(full.String(), &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NotFound(full.String(), s.code)
		}
		return nil, fmt.Errorf("failed to get %s: %w", full, err)
	}
	return &doc, nil
}

func (s *Store) put(doc *seriesDoc) error {
	doc.LocalTicker = doc.Record.LocalTicker.String()
	doc.DataType = doc.Record.DataTypeTicker.String()
	if err := s.db.Upsert(doc.FullTicker, doc); err != nil {
		return fmt.Errorf("failed to save %s: %w", doc.FullTicker, err)
	}
	return nil
}

func (s *Store) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, s, raw)
}

func recordOf(doc *seriesDoc) *models.SeriesRecord {
	rec := doc.Record.Clone()
	rec.Normalise()
	rec.Exists = true
	return rec
}

func (s *Store) ResolveFull(_ context.Context, full tickers.FullTicker) (*models.SeriesRecord, error) {
	doc, err := s.get(full)
	if errors.Is(err, models.ErrTickerNotFound) {
		return models.NewRecordFromFull(full), nil
	}
	if err != nil {
		return nil, err
	}
	return recordOf(doc), nil
}

func (s *Store) findOne(field, value string) (*seriesDoc, error) {
	var docs []seriesDoc
	if err := s.db.Find(&docs, badgerhold.Where(field).Eq(value).Index(field)); err != nil {
		return nil, fmt.Errorf("failed to query %s=%s: %w", field, value, err)
	}
	if len(docs) == 0 {
		return nil, models.NotFound(value, s.code)
	}
	return &docs[0], nil
}

// ResolveLocal looks a series up by its local alias.
func (s *Store) ResolveLocal(_ context.Context, local tickers.LocalTicker) (*models.SeriesRecord, error) {
	doc, err := s.findOne("LocalTicker", local.String())
	if err != nil {
		return nil, err
	}
	return recordOf(doc), nil
}

// ResolveDataType looks a series up by its datatype ticker.
func (s *Store) ResolveDataType(_ context.Context, dt tickers.DataTypeTicker) (*models.SeriesRecord, error) {
	doc, err := s.findOne("DataType", dt.String())
	if err != nil {
		return nil, err
	}
	return recordOf(doc), nil
}

// SetAlias attaches a local ticker to a stored series.
func (s *Store) SetAlias(_ context.Context, local tickers.LocalTicker, full tickers.FullTicker) error {
	doc, err := s.get(full)
	if err != nil {
		return err
	}
	doc.Record.LocalTicker = local
	return s.put(doc)
}

// SetDataType attaches a datatype ticker to a stored series.
func (s *Store) SetDataType(_ context.Context, dt tickers.DataTypeTicker, full tickers.FullTicker) error {
	doc, err := s.get(full)
	if err != nil {
		return err
	}
	doc.Record.DataTypeTicker = dt
	return s.put(doc)
}

func (s *Store) Has(_ context.Context, full tickers.FullTicker) (bool, error) {
	_, err := s.get(full)
	if errors.Is(err, models.ErrTickerNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Retrieve(_ context.Context, rec *models.SeriesRecord) (models.Series, error) {
	doc, err := s.get(rec.FullTicker)
	if err != nil {
		return models.Series{}, err
	}
	return models.Series{Ticker: doc.FullTicker, Observations: doc.Observations}, nil
}

func (s *Store) Write(_ context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error {
	if !overwrite {
		return storage.ErrOverwriteRequired
	}
	if rec.FullTicker.IsZero() {
		return fmt.Errorf("%w: write without full ticker", models.ErrInvalidRecord)
	}
	stored := rec.Clone()
	stored.Normalise()
	stored.Exists = false
	if prev, err := s.get(rec.FullTicker); err == nil {
		if stored.LastRefresh.IsZero() {
			stored.LastRefresh = prev.Record.LastRefresh
		}
		if stored.LastUpdate.IsZero() {
			stored.LastUpdate = prev.Record.LastUpdate
		}
		if stored.LocalTicker.IsZero() {
			stored.LocalTicker = prev.Record.LocalTicker
		}
		if stored.DataTypeTicker.IsZero() {
			stored.DataTypeTicker = prev.Record.DataTypeTicker
		}
	}
	doc := &seriesDoc{
		FullTicker:   rec.FullTicker.String(),
		Record:       *stored,
		Observations: series.Observations,
	}
	if err := s.put(doc); err != nil {
		return err
	}
	s.logger.Debug().Str("ticker", doc.FullTicker).Int("points", series.Len()).Msg("Series written")
	return nil
}

func (s *Store) Delete(_ context.Context, rec *models.SeriesRecord) error {
	if err := s.db.Delete(rec.FullTicker.String(), seriesDoc{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.NotFound(rec.FullTicker.String(), s.code)
		}
		return fmt.Errorf("failed to delete %s: %w", rec.FullTicker, err)
	}
	return nil
}

func (s *Store) GetLastRefresh(_ context.Context, full tickers.FullTicker) (time.Time, error) {
	doc, err := s.get(full)
	if err != nil {
		return time.Time{}, err
	}
	return doc.Record.LastRefresh, nil
}

func (s *Store) SetLastRefresh(_ context.Context, full tickers.FullTicker, ts time.Time) error {
	doc, err := s.get(full)
	if err != nil {
		return err
	}
	doc.Record.LastRefresh = ts
	return s.put(doc)
}

func (s *Store) SetLastUpdate(_ context.Context, full tickers.FullTicker, ts time.Time) error {
	doc, err := s.get(full)
	if err != nil {
		return err
	}
	doc.Record.LastUpdate = ts
	return s.put(doc)
}

// SetsLastUpdateAutomatically is false: the caller stamps after each write.
func (s *Store) SetsLastUpdateAutomatically() bool { return false }

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
