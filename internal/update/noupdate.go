package update

import (
	"context"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// NoUpdateName is the registry name of NoUpdate.
const NoUpdateName = "NOUPDATE"

// NoUpdate always serves the stored series and never calls the provider.
type NoUpdate struct{}

func (NoUpdate) Name() string { return NoUpdateName }

func (NoUpdate) Update(ctx context.Context, _ tickers.FullTicker, rec *models.SeriesRecord, _ interfaces.Provider, store interfaces.Storage) (models.Series, error) {
	return store.Retrieve(ctx, rec)
}
