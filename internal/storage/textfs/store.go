// Package textfs stores one JSON document per series under
// <path>/<provider>/<query>.json, both parts percent-encoded. Writes are
// atomic (temp file + rename).
package textfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the store code used when none is given.
const DefaultCode = "TEXT"

// Store is a file-per-series JSON store.
type Store struct {
	code     string
	basePath string
	logger   *common.Logger
	now      func() time.Time
}

type document struct {
	Record       *models.SeriesRecord `json:"record"`
	Observations []models.Observation `json:"observations"`
}

// NewStore opens (creating if needed) a text store rooted at path.
func NewStore(logger *common.Logger, code, path string) (*Store, error) {
	if code == "" {
		code = DefaultCode
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create text store path %s: %w", path, err)
	}
	logger.Info().Str("code", code).Str("path", path).Msg("Text store opened")
	return &Store{code: code, basePath: path, logger: logger, now: time.Now}, nil
}

func (s *Store) Code() string { return s.code }

// escapeKey percent-encodes every byte outside [A-Za-z0-9_-], so distinct
// tickers never share a file name.
func escapeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func (s *Store) filePath(full tickers.FullTicker) string {
	provider, query := tickers.Split(full)
	return filepath.Join(s.basePath, escapeKey(provider.String()), escapeKey(query.String())+".json")
}

func (s *Store) decode(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("'%s' is empty", path)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &doc, nil
}

func (s *Store) read(full tickers.FullTicker) (*document, error) {
	path := s.filePath(full)
	doc, err := s.decode(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NotFound(full.String(), s.code)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if doc.Record == nil || doc.Record.FullTicker != full {
		// another ticker owns the file (case-insensitive file systems)
		return nil, models.NotFound(full.String(), s.code)
	}
	return doc, nil
}

// checkOwner refuses to replace a file that holds a different ticker.
func (s *Store) checkOwner(full tickers.FullTicker) error {
	path := s.filePath(full)
	doc, err := s.decode(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if doc.Record != nil && !doc.Record.FullTicker.IsZero() && doc.Record.FullTicker != full {
		return fmt.Errorf("%w: %s would replace %s at %s", models.ErrInvalidRecord, full, doc.Record.FullTicker, path)
	}
	return nil
}

func (s *Store) write(full tickers.FullTicker, doc *document) error {
	target := s.filePath(full)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, s, raw)
}

// ResolveFull loads the stored record so refresh timestamps are available
// to the update policy without a second read.
func (s *Store) ResolveFull(_ context.Context, full tickers.FullTicker) (*models.SeriesRecord, error) {
	doc, err := s.read(full)
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

func (s *Store) Has(_ context.Context, full tickers.FullTicker) (bool, error) {
	_, err := s.read(full)
	if errors.Is(err, models.ErrTickerNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Retrieve(_ context.Context, rec *models.SeriesRecord) (models.Series, error) {
	doc, err := s.read(rec.FullTicker)
	if err != nil {
		return models.Series{}, err
	}
	return models.Series{Ticker: rec.FullTicker.String(), Observations: doc.Observations}, nil
}

func (s *Store) Write(_ context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error {
	if !overwrite {
		return storage.ErrOverwriteRequired
	}
	if rec.FullTicker.IsZero() {
		return fmt.Errorf("%w: write without full ticker", models.ErrInvalidRecord)
	}
	if err := s.checkOwner(rec.FullTicker); err != nil {
		return err
	}
	stored := rec.Clone()
	stored.Normalise()
	stored.LastUpdate = s.now()
	if prev, err := s.read(rec.FullTicker); err == nil && stored.LastRefresh.IsZero() {
		stored.LastRefresh = prev.Record.LastRefresh
	}
	if err := s.write(rec.FullTicker, &document{Record: stored, Observations: series.Observations}); err != nil {
		return err
	}
	s.logger.Debug().Str("ticker", rec.FullTicker.String()).Int("points", series.Len()).Msg("Series written")
	return nil
}

func (s *Store) Delete(_ context.Context, rec *models.SeriesRecord) error {
	if _, err := s.read(rec.FullTicker); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(rec.FullTicker)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", rec.FullTicker, err)
	}
	return nil
}

func (s *Store) GetLastRefresh(_ context.Context, full tickers.FullTicker) (time.Time, error) {
	doc, err := s.read(full)
	if err != nil {
		return time.Time{}, err
	}
	return doc.Record.LastRefresh, nil
}

func (s *Store) SetLastRefresh(_ context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.stamp(full, func(r *models.SeriesRecord) { r.LastRefresh = ts })
}

func (s *Store) SetLastUpdate(_ context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.stamp(full, func(r *models.SeriesRecord) { r.LastUpdate = ts })
}

func (s *Store) stamp(full tickers.FullTicker, fn func(*models.SeriesRecord)) error {
	doc, err := s.read(full)
	if err != nil {
		return err
	}
	fn(doc.Record)
	return s.write(full, doc)
}

// SetsLastUpdateAutomatically is true: Write stamps LastUpdate.
func (s *Store) SetsLastUpdateAutomatically() bool { return true }

// Tickers lists every stored full ticker.
func (s *Store) Tickers(_ context.Context) ([]tickers.FullTicker, error) {
	var out []tickers.FullTicker
	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var doc document
		if json.Unmarshal(data, &doc) == nil && doc.Record != nil && !doc.Record.FullTicker.IsZero() {
			out = append(out, doc.Record.FullTicker)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
