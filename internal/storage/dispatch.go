package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// ResolveMetadata is the GetMetadata implementation shared by the backends.
// It parses raw and dispatches on the ticker kind: local tickers and datatype
// tickers go to the optional resolver capabilities, full tickers go to the
// store's FullTickerResolver or to the default Has lookup.
func ResolveMetadata(ctx context.Context, s interfaces.Storage, raw string) (*models.SeriesRecord, error) {
	t, err := tickers.Parse(raw)
	if err != nil {
		return nil, err
	}

	switch tk := t.(type) {
	case tickers.LocalTicker:
		r, ok := s.(interfaces.LocalTickerResolver)
		if !ok {
			return nil, fmt.Errorf("%w: store %s does not resolve local tickers", models.ErrNotImplemented, s.Code())
		}
		return r.ResolveLocal(ctx, tk)
	case tickers.DataTypeTicker:
		r, ok := s.(interfaces.DataTypeResolver)
		if !ok {
			return nil, fmt.Errorf("%w: store %s does not resolve datatype tickers", models.ErrNotImplemented, s.Code())
		}
		return r.ResolveDataType(ctx, tk)
	case tickers.FullTicker:
		if r, ok := s.(interfaces.FullTickerResolver); ok {
			return r.ResolveFull(ctx, tk)
		}
		return DefaultFullMetadata(ctx, s, tk)
	default:
		return nil, fmt.Errorf("%w: unexpected %s", models.ErrInvalidRecord, t.Kind())
	}
}

// DefaultFullMetadata splits full into provider and query and asks the store
// whether it holds the series. Descriptive fields stay empty.
func DefaultFullMetadata(ctx context.Context, s interfaces.Storage, full tickers.FullTicker) (*models.SeriesRecord, error) {
	rec := models.NewRecordFromFull(full)
	exists, err := s.Has(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("store %s: has %s: %w", s.Code(), full, err)
	}
	rec.Exists = exists
	return rec, nil
}

// RetrieveWithMeta resolves full and retrieves the stored series. The record
// is validated before retrieving.
func RetrieveWithMeta(ctx context.Context, s interfaces.Storage, full tickers.FullTicker) (models.Series, *models.SeriesRecord, error) {
	rec, err := ResolveMetadata(ctx, s, full.String())
	if err != nil {
		return models.Series{}, nil, err
	}
	if err := rec.Validate(); err != nil {
		return models.Series{}, nil, err
	}
	series, err := s.Retrieve(ctx, rec)
	if err != nil {
		return models.Series{}, nil, err
	}
	return series, rec, nil
}

// Transfer copies one series and its record from src to dst. Exists is
// recomputed against dst; everything else is kept.
func Transfer(ctx context.Context, full tickers.FullTicker, src, dst interfaces.Storage) error {
	series, rec, err := RetrieveWithMeta(ctx, src, full)
	if err != nil {
		return fmt.Errorf("transfer %s from %s: %w", full, src.Code(), err)
	}
	out := rec.Clone()
	exists, err := dst.Has(ctx, full)
	if err != nil {
		return fmt.Errorf("transfer %s to %s: %w", full, dst.Code(), err)
	}
	out.Exists = exists
	if err := dst.Write(ctx, series, out, true); err != nil {
		return fmt.Errorf("transfer %s to %s: %w", full, dst.Code(), err)
	}
	if !dst.SetsLastUpdateAutomatically() && !rec.LastUpdate.IsZero() {
		if err := dst.SetLastUpdate(ctx, full, rec.LastUpdate); err != nil {
			return fmt.Errorf("transfer %s to %s: %w", full, dst.Code(), err)
		}
	}
	if !rec.LastRefresh.IsZero() {
		if err := dst.SetLastRefresh(ctx, full, rec.LastRefresh); err != nil {
			return fmt.Errorf("transfer %s to %s: %w", full, dst.Code(), err)
		}
	}
	return nil
}

// ErrOverwriteRequired is returned by backends for Write(overwrite=false).
var ErrOverwriteRequired = fmt.Errorf("%w: incremental writes (overwrite=false)", models.ErrNotImplemented)
