// Package interfaces defines the capability contracts between the fetch
// orchestrator and its collaborators.
package interfaces

import (
	"context"

	"github.com/bobmcallan/econdata/internal/models"
)

// Provider fetches series from one external source.
type Provider interface {
	Info() models.ProviderInfo

	// Fetch retrieves the series named by rec.QueryTicker. It returns a
	// models.TickerNotFoundError when the source has no such series; in
	// that case a non-nil result may still carry a table of companion
	// series that must be persisted.
	Fetch(ctx context.Context, rec *models.SeriesRecord) (*models.FetchResult, error)
}

// SeriesURLer is implemented by providers that can link to a single series.
type SeriesURLer interface {
	SeriesURL(rec *models.SeriesRecord) (string, error)
}
