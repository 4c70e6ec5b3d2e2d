// Package redis stores series as JSON documents in Redis. Local and datatype
// aliases are plain string keys pointing at the full ticker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the store code used when none is given.
const DefaultCode = "REDIS"

// maxTxRetries bounds optimistic retries when a watched key changes.
const maxTxRetries = 5

type document struct {
	Record       *models.SeriesRecord `json:"record"`
	Observations []models.Observation `json:"observations"`
}

// Store is a Redis-backed series store.
type Store struct {
	code   string
	prefix string
	client *redis.Client
	logger *common.Logger
}

// NewStore connects to Redis using cfg and checks the connection.
func NewStore(ctx context.Context, logger *common.Logger, code string, cfg common.RedisConfig) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is empty", models.ErrConfiguration)
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return NewStoreWithClient(logger, code, cfg.Prefix, client), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(logger *common.Logger, code, prefix string, client *redis.Client) *Store {
	if code == "" {
		code = DefaultCode
	}
	logger.Debug().Str("code", code).Str("prefix", prefix).Msg("Redis store ready")
	return &Store{code: code, prefix: prefix, client: client, logger: logger}
}

func (s *Store) Code() string { return s.code }

func (s *Store) seriesKey(full tickers.FullTicker) string {
	return s.prefix + "series:" + full.String()
}

func (s *Store) localKey(local tickers.LocalTicker) string {
	return s.prefix + "local:" + local.String()
}

func (s *Store) datatypeKey(dt tickers.DataTypeTicker) string {
	return s.prefix + "datatype:" + dt.String()
}

func (s *Store) load(ctx context.Context, c redis.Cmdable, full tickers.FullTicker) (*document, error) {
	raw, err := c.Get(ctx, s.seriesKey(full)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.NotFound(full.String(), s.code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", full, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", full, err)
	}
	if doc.Record == nil || doc.Record.FullTicker != full {
		return nil, fmt.Errorf("%w: document for %s holds %v", models.ErrInvalidRecord, full, doc.Record)
	}
	return &doc, nil
}

func encode(doc *document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", doc.Record.FullTicker, err)
	}
	return data, nil
}

// update applies fn to the stored document under WATCH, retrying if the key
// changes underneath.
func (s *Store) update(ctx context.Context, full tickers.FullTicker, fn func(*document) error) error {
	key := s.seriesKey(full)
	txf := func(tx *redis.Tx) error {
		doc, err := s.load(ctx, tx, full)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		data, err := encode(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update %s: too many concurrent writers", full)
}

func (s *Store) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, s, raw)
}

func (s *Store) ResolveFull(ctx context.Context, full tickers.FullTicker) (*models.SeriesRecord, error) {
	doc, err := s.load(ctx, s.client, full)
	if errors.Is(err, models.ErrTickerNotFound) {
		return models.NewRecordFromFull(full), nil
	}
	if err != nil {
		return nil, err
	}
	rec := doc.Record
	rec.Normalise()
	rec.Exists = true
	return rec, nil
}

func (s *Store) resolveAlias(ctx context.Context, key, alias string) (*models.SeriesRecord, error) {
	target, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.NotFound(alias, s.code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alias %s: %w", alias, err)
	}
	full, err := tickers.NewFullTicker(target)
	if err != nil {
		return nil, fmt.Errorf("%w: alias %s points at %q", models.ErrInvalidRecord, alias, target)
	}
	doc, err := s.load(ctx, s.client, full)
	if err != nil {
		// dangling alias
		if errors.Is(err, models.ErrTickerNotFound) {
			return nil, models.NotFound(alias, s.code)
		}
		return nil, err
	}
	rec := doc.Record
	rec.Normalise()
	rec.Exists = true
	return rec, nil
}

func (s *Store) ResolveLocal(ctx context.Context, local tickers.LocalTicker) (*models.SeriesRecord, error) {
	return s.resolveAlias(ctx, s.localKey(local), local.String())
}

func (s *Store) ResolveDataType(ctx context.Context, dt tickers.DataTypeTicker) (*models.SeriesRecord, error) {
	return s.resolveAlias(ctx, s.datatypeKey(dt), dt.String())
}

// SetAlias attaches a local ticker to a stored series.
func (s *Store) SetAlias(ctx context.Context, local tickers.LocalTicker, full tickers.FullTicker) error {
	if err := s.update(ctx, full, func(d *document) error {
		d.Record.LocalTicker = local
		return nil
	}); err != nil {
		return err
	}
	return s.client.Set(ctx, s.localKey(local), full.String(), 0).Err()
}

// SetDataType attaches a datatype ticker to a stored series.
func (s *Store) SetDataType(ctx context.Context, dt tickers.DataTypeTicker, full tickers.FullTicker) error {
	if err := s.update(ctx, full, func(d *document) error {
		d.Record.DataTypeTicker = dt
		return nil
	}); err != nil {
		return err
	}
	return s.client.Set(ctx, s.datatypeKey(dt), full.String(), 0).Err()
}

func (s *Store) Has(ctx context.Context, full tickers.FullTicker) (bool, error) {
	n, err := s.client.Exists(ctx, s.seriesKey(full)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", full, err)
	}
	return n > 0, nil
}

func (s *Store) Retrieve(ctx context.Context, rec *models.SeriesRecord) (models.Series, error) {
	doc, err := s.load(ctx, s.client, rec.FullTicker)
	if err != nil {
		return models.Series{}, err
	}
	return models.Series{Ticker: rec.FullTicker.String(), Observations: doc.Observations}, nil
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
	stored.Exists = false
	if prev, err := s.load(ctx, s.client, rec.FullTicker); err == nil {
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
	data, err := encode(&document{Record: stored, Observations: series.Observations})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.seriesKey(rec.FullTicker), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", rec.FullTicker, err)
	}
	s.logger.Debug().Str("ticker", rec.FullTicker.String()).Int("points", series.Len()).Msg("Series written")
	return nil
}

func (s *Store) Delete(ctx context.Context, rec *models.SeriesRecord) error {
	doc, err := s.load(ctx, s.client, rec.FullTicker)
	if err != nil {
		return err
	}
	keys := []string{s.seriesKey(rec.FullTicker)}
	if !doc.Record.LocalTicker.IsZero() {
		keys = append(keys, s.localKey(doc.Record.LocalTicker))
	}
	if !doc.Record.DataTypeTicker.IsZero() {
		keys = append(keys, s.datatypeKey(doc.Record.DataTypeTicker))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rec.FullTicker, err)
	}
	return nil
}

func (s *Store) GetLastRefresh(ctx context.Context, full tickers.FullTicker) (time.Time, error) {
	doc, err := s.load(ctx, s.client, full)
	if err != nil {
		return time.Time{}, err
	}
	return doc.Record.LastRefresh, nil
}

func (s *Store) SetLastRefresh(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.update(ctx, full, func(d *document) error {
		d.Record.LastRefresh = ts
		return nil
	})
}

func (s *Store) SetLastUpdate(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.update(ctx, full, func(d *document) error {
		d.Record.LastUpdate = ts
		return nil
	})
}

// SetsLastUpdateAutomatically is false: the caller stamps after each write.
func (s *Store) SetsLastUpdateAutomatically() bool { return false }

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
