// Package providers holds the provider registry and helpers shared by the
// built-in providers.
package providers

import (
	"fmt"
	"sort"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
)

// Registry maps provider codes to providers.
type Registry struct {
	providers map[string]interfaces.Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]interfaces.Provider)}
}

// Register adds p under code. A later registration for the same code wins.
func (r *Registry) Register(code string, p interfaces.Provider) {
	r.providers[code] = p
}

// RegisterProvider registers p under its own code.
func (r *Registry) RegisterProvider(p interfaces.Provider) {
	r.Register(p.Info().Code, p)
}

// Get returns the provider for code or a wrapped models.ErrUnknownProvider.
func (r *Registry) Get(code string) (interfaces.Provider, error) {
	p, ok := r.providers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownProvider, code)
	}
	return p, nil
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SeriesURL returns a web page for the series. It falls back to the provider
// home page and never fails.
func SeriesURL(p interfaces.Provider, rec *models.SeriesRecord) string {
	if u, ok := p.(interfaces.SeriesURLer); ok && rec != nil {
		if url, err := u.SeriesURL(rec); err == nil && url != "" {
			return url
		}
	}
	return p.Info().WebPage
}
