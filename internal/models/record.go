package models

import (
	"fmt"
	"maps"
	"time"

	"github.com/bobmcallan/econdata/internal/tickers"
)

// SeriesRecord is the descriptive state of one series. Storage fills the
// identity and Exists; a provider fills the descriptive fields on fetch.
type SeriesRecord struct {
	Exists           bool                   `json:"-"`
	SeriesID         int64                  `json:"series_id,omitempty"`
	ProviderCode     tickers.ProviderCode   `json:"provider_code"`
	FullTicker       tickers.FullTicker     `json:"full_ticker"`
	LocalTicker      tickers.LocalTicker    `json:"local_ticker,omitzero"`
	DataTypeTicker   tickers.DataTypeTicker `json:"datatype_ticker,omitzero"`
	QueryTicker      tickers.QueryTicker    `json:"query_ticker"`
	Name             string                 `json:"name,omitempty"`
	Description      string                 `json:"description,omitempty"`
	WebPage          string                 `json:"web_page,omitempty"`
	Frequency        string                 `json:"frequency,omitempty"`
	ProviderMetadata map[string]string      `json:"provider_metadata,omitempty"`
	LastRefresh      time.Time              `json:"last_refresh,omitzero"`
	LastUpdate       time.Time              `json:"last_update,omitzero"`
}

// NewRecordFromFull returns a record with the identity slots filled from full.
func NewRecordFromFull(full tickers.FullTicker) *SeriesRecord {
	provider, query := tickers.Split(full)
	return &SeriesRecord{
		ProviderCode: provider,
		FullTicker:   full,
		QueryTicker:  query,
	}
}

// Validate checks that the ticker slots agree with each other. Typed slots
// cannot hold the wrong grammar, so the remaining failure is a full ticker
// that disagrees with its provider/query halves.
func (r *SeriesRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if r.FullTicker.IsZero() {
		if r.Exists {
			return fmt.Errorf("%w: existing record without full ticker", ErrInvalidRecord)
		}
		return nil
	}
	provider, query := tickers.Split(r.FullTicker)
	if !r.ProviderCode.IsZero() && r.ProviderCode != provider {
		return fmt.Errorf("%w: provider code %q does not match full ticker %q",
			ErrInvalidRecord, r.ProviderCode, r.FullTicker)
	}
	if !r.QueryTicker.IsZero() && r.QueryTicker != query {
		return fmt.Errorf("%w: query ticker %q does not match full ticker %q",
			ErrInvalidRecord, r.QueryTicker, r.FullTicker)
	}
	return nil
}

// Normalise fills empty provider/query slots from the full ticker.
func (r *SeriesRecord) Normalise() {
	if r.FullTicker.IsZero() {
		return
	}
	provider, query := tickers.Split(r.FullTicker)
	if r.ProviderCode.IsZero() {
		r.ProviderCode = provider
	}
	if r.QueryTicker.IsZero() {
		r.QueryTicker = query
	}
}

// Clone returns a deep copy.
func (r *SeriesRecord) Clone() *SeriesRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.ProviderMetadata = maps.Clone(r.ProviderMetadata)
	return &c
}

// SetMeta sets one provider metadata entry.
func (r *SeriesRecord) SetMeta(key, value string) {
	if r.ProviderMetadata == nil {
		r.ProviderMetadata = make(map[string]string)
	}
	r.ProviderMetadata[key] = value
}
