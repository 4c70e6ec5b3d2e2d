package interfaces

import (
	"context"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// UpdatePolicy decides whether a stored series is served as-is or refreshed.
// It either fully updates the store and returns the fresh series, or leaves
// the store untouched and returns the prior content.
type UpdatePolicy interface {
	Name() string
	Update(ctx context.Context, full tickers.FullTicker, rec *models.SeriesRecord, provider Provider, store Storage) (models.Series, error)
}

// ExternalFetchHook is called before a provider marked external is asked for data.
type ExternalFetchHook interface {
	BeforeExternalFetch(ctx context.Context, rec *models.SeriesRecord)
}

// EventPublisher sends fetch notifications to a message broker.
type EventPublisher interface {
	PublishFetch(ctx context.Context, rec *models.SeriesRecord) error
	Close() error
}
