// Package user serves series computed by Go functions registered at start-up,
// one function per query ticker.
package user

import (
	"context"
	"fmt"

	"github.com/bobmcallan/econdata/internal/models"
)

// DefaultCode is the provider code used when none is configured.
const DefaultCode = "U"

// SeriesFunc produces the series for a query ticker.
type SeriesFunc func(ctx context.Context, query string) (models.Series, error)

// Provider dispatches query tickers to registered functions.
type Provider struct {
	code     string
	handlers map[string]SeriesFunc
}

// New returns a user provider with no handlers.
func New(code string) *Provider {
	if code == "" {
		code = DefaultCode
	}
	return &Provider{code: code, handlers: make(map[string]SeriesFunc)}
}

// Handle registers fn for query. A later registration replaces an earlier one.
func (p *Provider) Handle(query string, fn SeriesFunc) {
	p.handlers[query] = fn
}

func (p *Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{Code: p.code, Name: "User"}
}

func (p *Provider) Fetch(ctx context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	query := rec.QueryTicker.String()
	fn, ok := p.handlers[query]
	if !ok {
		return nil, fmt.Errorf("%w: no user function handles %q", models.ErrNotImplemented, query)
	}
	series, err := fn(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("user function %q: %w", query, err)
	}
	return &models.FetchResult{Series: series.WithTicker(rec.FullTicker.String())}, nil
}
