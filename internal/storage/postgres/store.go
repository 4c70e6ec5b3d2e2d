// Package postgres stores series in PostgreSQL: one series_meta row per
// series and one series_values row per observation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	_ "github.com/lib/pq"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// DefaultCode is the store code used when none is given.
const DefaultCode = "PG"

// Store is a PostgreSQL-backed series store. The database sets last_update
// on every write.
type Store struct {
	code   string
	db     *sql.DB
	logger *common.Logger
}

// NewStore opens dsn, checks the connection and applies migrations.
func NewStore(ctx context.Context, logger *common.Logger, code, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", models.ErrConfiguration)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStoreWithDB(logger, code, db), nil
}

// NewStoreWithDB wraps an already-migrated connection.
func NewStoreWithDB(logger *common.Logger, code string, db *sql.DB) *Store {
	if code == "" {
		code = DefaultCode
	}
	logger.Debug().Str("code", code).Msg("Postgres store ready")
	return &Store{code: code, db: db, logger: logger}
}

func (s *Store) Code() string { return s.code }

const selectMeta = `
	SELECT id, full_ticker, provider_code, query_ticker, local_ticker, datatype_ticker,
	       name, description, web_page, frequency, metadata, last_refresh, last_update
	FROM series_meta`

func (s *Store) scanRecord(row *sql.Row, key string) (*models.SeriesRecord, error) {
	var (
		id                    int64
		full, provider, query string
		local, datatype       null.String
		metadata              []byte
		refresh, update       null.Time
		rec                   models.SeriesRecord
	)
	err := row.Scan(&id, &full, &provider, &query, &local, &datatype,
		&rec.Name, &rec.Description, &rec.WebPage, &rec.Frequency, &metadata, &refresh, &update)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound(key, s.code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series %s: %w", key, err)
	}

	rec.Exists = true
	rec.SeriesID = id
	if rec.FullTicker, err = tickers.NewFullTicker(full); err != nil {
		return nil, fmt.Errorf("%w: stored full ticker %q: %v", models.ErrInvalidRecord, full, err)
	}
	if local.Valid {
		if rec.LocalTicker, err = tickers.NewLocalTicker(local.String); err != nil {
			return nil, fmt.Errorf("%w: stored local ticker %q: %v", models.ErrInvalidRecord, local.String, err)
		}
	}
	if datatype.Valid {
		if rec.DataTypeTicker, err = tickers.NewDataTypeTicker(datatype.String); err != nil {
			return nil, fmt.Errorf("%w: stored datatype ticker %q: %v", models.ErrInvalidRecord, datatype.String, err)
		}
	}
	rec.ProviderCode, _ = tickers.NewProviderCode(provider)
	rec.QueryTicker, _ = tickers.NewQueryTicker(query)
	rec.Normalise()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.ProviderMetadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", full, err)
		}
		if len(rec.ProviderMetadata) == 0 {
			rec.ProviderMetadata = nil
		}
	}
	rec.LastRefresh = refresh.ValueOrZero().UTC()
	rec.LastUpdate = update.ValueOrZero().UTC()
	return &rec, nil
}

func (s *Store) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, s, raw)
}

// ResolveFull returns the stored record, or an empty record with Exists=false.
func (s *Store) ResolveFull(ctx context.Context, full tickers.FullTicker) (*models.SeriesRecord, error) {
	row := s.db.QueryRowContext(ctx, selectMeta+` WHERE full_ticker = $1`, full.String())
	rec, err := s.scanRecord(row, full.String())
	if errors.Is(err, models.ErrTickerNotFound) {
		return models.NewRecordFromFull(full), nil
	}
	return rec, err
}

func (s *Store) ResolveLocal(ctx context.Context, local tickers.LocalTicker) (*models.SeriesRecord, error) {
	row := s.db.QueryRowContext(ctx, selectMeta+` WHERE local_ticker = $1`, local.String())
	return s.scanRecord(row, local.String())
}

func (s *Store) ResolveDataType(ctx context.Context, dt tickers.DataTypeTicker) (*models.SeriesRecord, error) {
	row := s.db.QueryRowContext(ctx, selectMeta+` WHERE datatype_ticker = $1`, dt.String())
	return s.scanRecord(row, dt.String())
}

// SetAlias attaches a local ticker to a stored series.
func (s *Store) SetAlias(ctx context.Context, local tickers.LocalTicker, full tickers.FullTicker) error {
	return s.exec(ctx, full, `UPDATE series_meta SET local_ticker = $2 WHERE full_ticker = $1`, local.String())
}

// SetDataType attaches a datatype ticker to a stored series.
func (s *Store) SetDataType(ctx context.Context, dt tickers.DataTypeTicker, full tickers.FullTicker) error {
	return s.exec(ctx, full, `UPDATE series_meta SET datatype_ticker = $2 WHERE full_ticker = $1`, dt.String())
}

func (s *Store) Has(ctx context.Context, full tickers.FullTicker) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM series_meta WHERE full_ticker = $1)`, full.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check series %s: %w", full, err)
	}
	return exists, nil
}

func (s *Store) Retrieve(ctx context.Context, rec *models.SeriesRecord) (models.Series, error) {
	key := rec.FullTicker.String()
	ok, err := s.Has(ctx, rec.FullTicker)
	if err != nil {
		return models.Series{}, err
	}
	if !ok {
		return models.Series{}, models.NotFound(key, s.code)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.obs_date, v.value
		FROM series_values v
		JOIN series_meta m ON m.id = v.series_id
		WHERE m.full_ticker = $1
		ORDER BY v.obs_date`, key)
	if err != nil {
		return models.Series{}, fmt.Errorf("failed to query values for %s: %w", key, err)
	}
	defer rows.Close()

	var obs []models.Observation
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return models.Series{}, fmt.Errorf("failed to scan value for %s: %w", key, err)
		}
		o.Date = o.Date.UTC()
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return models.Series{}, fmt.Errorf("failed to iterate values for %s: %w", key, err)
	}
	return models.Series{Ticker: key, Observations: obs}, nil
}

// Write replaces the stored record and every observation in one transaction.
// last_update is set to now() by the database.
func (s *Store) Write(ctx context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error {
	if !overwrite {
		return storage.ErrOverwriteRequired
	}
	if rec.FullTicker.IsZero() {
		return fmt.Errorf("%w: write without full ticker", models.ErrInvalidRecord)
	}
	stored := rec.Clone()
	stored.Normalise()

	metadata, err := json.Marshal(stored.ProviderMetadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if stored.ProviderMetadata == nil {
		metadata = []byte("{}")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO series_meta (full_ticker, provider_code, query_ticker, local_ticker, datatype_ticker,
		                         name, description, web_page, frequency, metadata, last_refresh, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (full_ticker) DO UPDATE SET
			provider_code = EXCLUDED.provider_code,
			query_ticker = EXCLUDED.query_ticker,
			local_ticker = COALESCE(EXCLUDED.local_ticker, series_meta.local_ticker),
			datatype_ticker = COALESCE(EXCLUDED.datatype_ticker, series_meta.datatype_ticker),
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			web_page = EXCLUDED.web_page,
			frequency = EXCLUDED.frequency,
			metadata = EXCLUDED.metadata,
			last_refresh = COALESCE(EXCLUDED.last_refresh, series_meta.last_refresh),
			last_update = now()
		RETURNING id`,
		stored.FullTicker.String(), stored.ProviderCode.String(), stored.QueryTicker.String(),
		nullString(stored.LocalTicker.String()), nullString(stored.DataTypeTicker.String()),
		stored.Name, stored.Description, stored.WebPage, stored.Frequency, metadata,
		null.NewTime(stored.LastRefresh, !stored.LastRefresh.IsZero()),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert series %s: %w", stored.FullTicker, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM series_values WHERE series_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear values for %s: %w", stored.FullTicker, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO series_values (series_id, obs_date, value) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range series.Observations {
		if _, err := stmt.ExecContext(ctx, id, o.Date, o.Value); err != nil {
			return fmt.Errorf("failed to insert value %s for %s: %w", o.Date.Format(time.DateOnly), stored.FullTicker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug().Str("ticker", stored.FullTicker.String()).Int("points", series.Len()).Msg("Series written")
	return nil
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func (s *Store) Delete(ctx context.Context, rec *models.SeriesRecord) error {
	return s.exec(ctx, rec.FullTicker, `DELETE FROM series_meta WHERE full_ticker = $1`)
}

func (s *Store) GetLastRefresh(ctx context.Context, full tickers.FullTicker) (time.Time, error) {
	var ts null.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_refresh FROM series_meta WHERE full_ticker = $1`, full.String()).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, models.NotFound(full.String(), s.code)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last refresh for %s: %w", full, err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time.UTC(), nil
}

func (s *Store) SetLastRefresh(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.exec(ctx, full, `UPDATE series_meta SET last_refresh = $2 WHERE full_ticker = $1`, ts)
}

func (s *Store) SetLastUpdate(ctx context.Context, full tickers.FullTicker, ts time.Time) error {
	return s.exec(ctx, full, `UPDATE series_meta SET last_update = $2 WHERE full_ticker = $1`, ts)
}

// exec runs a statement keyed by full ticker and reports a missing row as
// not found.
func (s *Store) exec(ctx context.Context, full tickers.FullTicker, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, append([]any{full.String()}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", full, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", full, err)
	}
	if n == 0 {
		return models.NotFound(full.String(), s.code)
	}
	return nil
}

func (s *Store) SetsLastUpdateAutomatically() bool { return true }

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
