package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// Storage is a backing store for series keyed by full ticker.
type Storage interface {
	Code() string

	// GetMetadata resolves a raw ticker string into a record. Exists is set
	// when the store already holds the series.
	GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error)

	Has(ctx context.Context, full tickers.FullTicker) (bool, error)

	// Retrieve returns the stored series, or a models.TickerNotFoundError.
	Retrieve(ctx context.Context, rec *models.SeriesRecord) (models.Series, error)

	// Write replaces the whole stored series. overwrite=false is not supported.
	Write(ctx context.Context, series models.Series, rec *models.SeriesRecord, overwrite bool) error

	Delete(ctx context.Context, rec *models.SeriesRecord) error

	GetLastRefresh(ctx context.Context, full tickers.FullTicker) (time.Time, error)
	SetLastRefresh(ctx context.Context, full tickers.FullTicker, ts time.Time) error
	SetLastUpdate(ctx context.Context, full tickers.FullTicker, ts time.Time) error

	// SetsLastUpdateAutomatically reports whether Write stamps the last
	// update time itself.
	SetsLastUpdateAutomatically() bool

	Close() error
}

// LocalTickerResolver is implemented by stores that keep local aliases.
type LocalTickerResolver interface {
	ResolveLocal(ctx context.Context, local tickers.LocalTicker) (*models.SeriesRecord, error)
}

// DataTypeResolver is implemented by stores that index series by datatype ticker.
type DataTypeResolver interface {
	ResolveDataType(ctx context.Context, dt tickers.DataTypeTicker) (*models.SeriesRecord, error)
}

// FullTickerResolver lets a store replace the default full-ticker lookup,
// typically to load the stored record in the same round trip.
type FullTickerResolver interface {
	ResolveFull(ctx context.Context, full tickers.FullTicker) (*models.SeriesRecord, error)
}
