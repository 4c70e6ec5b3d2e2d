// Package surrealdb stores series as one SurrealDB document per full ticker.
package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the store code used when none is given.
const DefaultCode = "SURREAL"

const table = "series"

// seriesDoc is the document shape of the series table. Tickers are kept as
// plain strings so they can be queried.
type seriesDoc struct {
	FullTicker     string            `json:"full_ticker"`
	ProviderCode   string            `json:"provider_code"`
	QueryTicker    string            `json:"query_ticker"`
	LocalTicker    string            `json:"local_ticker,omitempty"`
	DataTypeTicker string            `json:"datatype_ticker,omitempty"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	WebPage        string            `json:"web_page"`
	Frequency      string            `json:"frequency"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	LastRefresh    *time.Time        `json:"last_refresh,omitempty"`
	LastUpdate     *time.Time        `json:"last_update,omitempty"`
	Observations   []obsDoc          `json:"observations"`
}

type obsDoc struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Store implements the series store on SurrealDB.
type Store struct {
	code   string
	db     *surrealdb.DB
	logger *common.Logger
}

// Connect opens, signs in and selects the namespace/database from config.
func Connect(ctx context.Context, cfg common.SurrealConfig) (*surrealdb.DB, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: surrealdb address is empty", models.ErrConfiguration)
	}
	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}
	return db, nil
}

// NewStore defines the series table and returns a store using db.
func NewStore(ctx context.Context, db *surrealdb.DB, logger *common.Logger, code string) (*Store, error) {
	if code == "" {
		code = DefaultCode
	}
	// SurrealDB v3 errors on querying non-existent tables
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return nil, fmt.Errorf("failed to define table %s: %w", table, err)
	}
	logger.Debug().Str("code", code).Msg("SurrealDB store ready")
	return &Store{code: code, db: db, logger: logger}, nil
}

func (s *Store) Code() string { return s.code }

func recordID(full tickers.FullTicker) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, full.String())
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

func (s *Store) get(ctx context.Context, full tickers.FullTicker) (*seriesDoc, error) {
	doc, err := surrealdb.Select[seriesDoc](ctx, s.db, recordID(full))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select %s: %w", full, err)
	}
	if doc == nil || doc.FullTicker == "" {
		return nil, models.NotFound(full.String(), s.code)
	}
	return doc, nil
}

func (s *Store) put(ctx context.Context, doc *seriesDoc) error {
	full, err := tickers.NewFullTicker(doc.FullTicker)
	if err != nil {
		return err
	}
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": recordID(full), "data": doc}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]seriesDoc](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save %s after retries: %w", doc.FullTicker, lastErr)
}

func (s *Store) findOne(ctx context.Context, field, value string) (*seriesDoc, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = $value LIMIT 1", table, field)
	results, err := surrealdb.Query[[]seriesDoc](ctx, s.db, sql, map[string]any{"value": value})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", field, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.NotFound(value, s.code)
	}
	return &(*results)[0].Result[0], nil
}

func toRecord(doc *seriesDoc) (*models.SeriesRecord, error) {
	full, err := tickers.NewFullTicker(doc.FullTicker)
	if err != nil {
		return nil, fmt.Errorf("%w: stored full ticker %q: %v", models.ErrInvalidRecord, doc.FullTicker, err)
	}
	rec := models.NewRecordFromFull(full)
	rec.Exists = true
	if doc.LocalTicker != "" {
		if rec.LocalTicker, err = tickers.NewLocalTicker(doc.LocalTicker); err != nil {
			return nil, fmt.Errorf("%w: stored local ticker: %v", models.ErrInvalidRecord, err)
		}
	}
	if doc.DataTypeTicker != "" {
		if rec.DataTypeTicker, err = tickers.NewDataTypeTicker(doc.DataTypeTicker); err != nil {
			return nil, fmt.Errorf("%w: stored datatype ticker: %v", models.ErrInvalidRecord, err)
		}
	}
	rec.Name = doc.Name
	rec.Description = doc.Description
	rec.WebPage = doc.WebPage
	rec.Frequency = doc.Frequency
	if len(doc.Metadata) > 0 {
		rec.ProviderMetadata = doc.Metadata
	}
	if doc.LastRefresh != nil {
		rec.LastRefresh = doc.LastRefresh.UTC()
	}
	if doc.LastUpdate != nil {
		rec.LastUpdate = doc.LastUpdate.UTC()
	}
	return rec, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Store) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, s, raw)
}

func (s *Store) ResolveFull(ctx context.Context, full tickers.FullTicker) (*models.SeriesRecord, error) {
	doc, err := s.get(ctx, full)
	if errors.Is(err, models.ErrTickerNotFound) {
		return models.NewRecordFromFull(full), nil
	}
	if err != nil {
		return nil, err
	}
	return toRecord(doc)
}

func (s *Store) ResolveLocal(ctx context.Context, local tickers.LocalTicker) (*models.SeriesRecord, error) {
	doc, err := s.findOne(ctx, "local_ticker", local.String())
	if err != nil {
		return nil, err
	}
	return toRecord(doc)
}

func (s *Store) ResolveDataType(ctx context.Context, dt tickers.DataTypeTicker) (*models.SeriesRecord, error) {
	doc, err := s.findOne(ctx, "datatype_ticker", dt.String())
	if err != nil {
		return nil, err
	}
	return toRecord(doc)
}

// SetAlias attaches a local ticker to a stored series.
func (s *Store) SetAlias(ctx context.Context, local tickers.LocalTicker, full tickers.FullTicker) error {
	return s.update(ctx, full, func(d *seriesDoc) { d.LocalTicker = local.String() })
}

// SetDataType attaches a datatype ticker to a stored series.
func (s *Store) SetDataType(ctx context.Context, dt tickers.DataTypeTicker, full tickers.FullTicker) error {
	return s.update(ctx, full, func(d *seriesDoc) { d.DataTypeTicker = dt.String() })
}

func (s *Store) Has(ctx context.Context, full tickers.FullTicker) (bool, error) {
	_, err := s.get(ctx, full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrTickerNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Store) Retrieve(ctx context.Context, rec *models.SeriesRecord) (models.Series, error) {
	doc, err := s.get(ctx, rec.FullTicker)
	if err != nil {
		return models.Series{}, err
	}
	obs := make([]models.Observation, 0, len(doc.Observations))
	for _, o := range doc.Observations {
		date, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return models.Series{}, fmt.Errorf("failed to parse date %q in %s: %w", o.Date, doc.FullTicker, err)
		}
		obs = append(obs, models.Observation{Date: date, Value: null.FloatFromPtr(o.Value)})
	}
	return models.Series{Ticker: doc.FullTicker, Observations: obs}, nil
}

// Write replaces the document. Stamps and aliases the record does not carry
// are kept from the previous document.
func (s *Store) Write(ctx context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error {
	if !overwrite {
		return storage.ErrOverwriteRequired
	}
	if rec.FullTicker.IsZero() {
		return fmt.Errorf("%w: write without full ticker", models.ErrInvalidRecord)
	}
	stored := rec.Clone()
	stored.Normalise()
	doc := &seriesDoc{
		FullTicker:     stored.FullTicker.String(),
		ProviderCode:   stored.ProviderCode.String(),
		QueryTicker:    stored.QueryTicker.String(),
		LocalTicker:    stored.LocalTicker.String(),
		DataTypeTicker: stored.DataTypeTicker.String(),
		Name:           stored.Name,
		Description:    stored.Description,
		WebPage:        stored.WebPage,
		Frequency:      stored.Frequency,
		Metadata:       stored.ProviderMetadata,
		LastRefresh:    timePtr(stored.LastRefresh),
		LastUpdate:     timePtr(stored.LastUpdate),
		Observations:   make([]obsDoc, 0, len(series.Observations)),
	}
	if prev, err := s.get(ctx, stored.FullTicker); err == nil {
		if doc.LocalTicker == "" {
			doc.LocalTicker = prev.LocalTicker
		}
		if doc.DataTypeTicker == "" {
			doc.DataTypeTicker = prev.DataTypeTicker
		}
		if doc.LastRefresh == nil {
			doc.LastRefresh = prev.LastRefresh
		}
		if doc.LastUpdate == nil {
			doc.LastUpdate = prev.LastUpdate
		}
	}
	for _, o := range series.Observations {
		doc.Observations = append(doc.Observations, obsDoc{
			Date:  o.Date.Format(time.DateOnly),
			Value: o.Value.Ptr(),
		})
	}
	if err := s.put(ctx, doc); err != nil {
		return err
	}
	s.logger.Debug().Str("ticker", doc.FullTicker).Int("points", series.Len()).Msg("Series written")
	return nil
}

func (s *Store) Delete(ctx context.Context, rec *models.SeriesRecord) error {
	if _, err := s.get(ctx, rec.FullTicker); err != nil {
		return err
	}
	if _, err := surrealdb.Delete[seriesDoc](ctx, s.db, recordID(rec.FullTicker)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete %s: %w", rec.FullTicker, err)
	}
	return nil
}

func (s *Store) GetLastRefresh(ctx context.Context, full tickers.FullTicker) (time.Time, error) {
	doc, err := s.get(ctx, full)
	if err != nil {
		return time.Time{}, err
	}
	if doc.LastRefresh == nil {
		return time.Time{}, nil
	}
	return doc.LastRefresh.UTC(), nil
}

func (s *Store) SetLastRefresh(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.update(ctx, full, func(d *seriesDoc) { d.LastRefresh = timePtr(ts) })
}

func (s *Store) SetLastUpdate(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.update(ctx, full, func(d *seriesDoc) { d.LastUpdate = timePtr(ts) })
}

func (s *Store) update(ctx context.Context, full tickers.FullTicker, fn func(*seriesDoc)) error {
	doc, err := s.get(ctx, full)
	if err != nil {
		return err
	}
	fn(doc)
	return s.put(ctx, doc)
}

// SetsLastUpdateAutomatically is false: the caller stamps after each write.
func (s *Store) SetsLastUpdateAutomatically() bool { return false }

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}
