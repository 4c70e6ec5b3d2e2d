// Package example is a deterministic provider used for end-to-end checks of
// the fetch path. It knows one series, TEST1.
package example

import (
	"context"
	"time"

	"github.com/bobmcallan/econdata/internal/models"
)

// DefaultCode is the provider code used when none is configured.
const DefaultCode = "TEST"

// Provider serves the TEST1 series and reports everything else as not found.
type Provider struct {
	code string
}

// New returns the example provider registered under code.
func New(code string) *Provider {
	if code == "" {
		code = DefaultCode
	}
	return &Provider{code: code}
}

func (p *Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		Code:    p.code,
		Name:    "Example",
		WebPage: "https://github.com/bobmcallan/econdata",
	}
}

func (p *Provider) Fetch(_ context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	if rec.QueryTicker.String() != "TEST1" {
		return nil, models.NotFound(rec.FullTicker.String(), p.code)
	}
	series, err := models.NewSeries(rec.FullTicker.String(), []models.Observation{
		models.Obs(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 1),
		models.Obs(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC), 2),
	})
	if err != nil {
		return nil, err
	}
	out := rec.Clone()
	out.Name = "TEST1"
	out.Description = "Example series"
	return &models.FetchResult{Series: series, Record: out}, nil
}
