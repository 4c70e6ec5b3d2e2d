// Package push marks series that only ever arrive by being written into a
// store directly. The orchestrator never calls Fetch on it.
package push

import (
	"context"
	"fmt"

	"github.com/bobmcallan/econdata/internal/models"
)

// DefaultCode is the provider code used when none is configured.
const DefaultCode = "PUSH"

// Provider is a push-only provider.
type Provider struct {
	code string
}

// New returns the push-only provider registered under code.
func New(code string) *Provider {
	if code == "" {
		code = DefaultCode
	}
	return &Provider{code: code}
}

func (p *Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{Code: p.code, Name: "Push", PushOnly: true}
}

func (p *Provider) Fetch(_ context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	return nil, fmt.Errorf("%w: %s", models.ErrPushOnly, rec.FullTicker)
}
