// Package storagetest holds behaviour checks shared by every store backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// UniqueTicker returns a full ticker no other test has used, so backends
// sharing one database do not collide.
func UniqueTicker(provider string) tickers.FullTicker {
	return tickers.MustFull(provider + tickers.Separator + "Q" + uuid.NewString()[:8])
}

// SampleSeries returns three monthly observations, the middle one missing.
func SampleSeries(t *testing.T, full tickers.FullTicker) models.Series {
	t.Helper()
	series, err := models.NewSeries(full.String(), []models.Observation{
		models.Obs(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), 100),
		models.MissingObs(time.Date(2010, 2, 1, 0, 0, 0, 0, time.UTC)),
		models.Obs(time.Date(2010, 3, 1, 0, 0, 0, 0, time.UTC), 101.5),
	})
	require.NoError(t, err)
	return series
}

// Run exercises the Storage contract against s.
func Run(t *testing.T, s interfaces.Storage) {
	t.Run("MissingSeries", func(t *testing.T) { testMissing(t, s) })
	t.Run("WriteRetrieve", func(t *testing.T) { testWriteRetrieve(t, s) })
	t.Run("Stamps", func(t *testing.T) { testStamps(t, s) })
	t.Run("OverwriteRequired", func(t *testing.T) { testOverwrite(t, s) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, s) })
	t.Run("SimilarTickers", func(t *testing.T) { testSimilarTickers(t, s) })
}

// testSimilarTickers writes query tickers that differ only in punctuation.
func testSimilarTickers(t *testing.T, s interfaces.Storage) {
	ctx := context.Background()
	base := UniqueTicker("D").String()
	fulls := []tickers.FullTicker{
		tickers.MustFull(base + "/ZUTN"),
		tickers.MustFull(base + "_ZUTN"),
		tickers.MustFull(base + "|ZUTN"),
		tickers.MustFull(base + "~ZUTN"),
	}
	for _, full := range fulls {
		require.NoError(t, s.Write(ctx, SampleSeries(t, full), models.NewRecordFromFull(full), true))
	}
	for _, full := range fulls {
		ok, err := s.Has(ctx, full)
		require.NoError(t, err)
		assert.True(t, ok, "%s was overwritten", full)
	}
}

func testMissing(t *testing.T, s interfaces.Storage) {
	ctx := context.Background()
	full := UniqueTicker("F")

	meta, err := s.GetMetadata(ctx, full.String())
	require.NoError(t, err)
	assert.False(t, meta.Exists)
	assert.Equal(t, full, meta.FullTicker)

	ok, err := s.Has(ctx, full)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Retrieve(ctx, meta)
	assert.ErrorIs(t, err, models.ErrTickerNotFound)

	_, err = s.GetLastRefresh(ctx, full)
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
}

func testWriteRetrieve(t *testing.T, s interfaces.Storage) {
	ctx := context.Background()
	full := UniqueTicker("D")
	series := SampleSeries(t, full)
	rec := models.NewRecordFromFull(full)
	rec.Name = "Sample"
	rec.Frequency = "M"
	rec.SetMeta("unit", "index")

	before := time.Now().Add(-time.Minute)
	require.NoError(t, s.Write(ctx, series, rec, true))

	got, meta, err := storage.RetrieveWithMeta(ctx, s, full)
	require.NoError(t, err)
	assert.True(t, meta.Exists)
	assert.Equal(t, "Sample", meta.Name)
	assert.Equal(t, "M", meta.Frequency)
	assert.Equal(t, "index", meta.ProviderMetadata["unit"])
	assert.Equal(t, full.String(), got.Ticker)
	require.Equal(t, 3, got.Len())
	assert.True(t, got.Observations[0].Date.Equal(series.Observations[0].Date))
	assert.False(t, got.Observations[1].Value.Valid)
	assert.Equal(t, 101.5, got.Observations[2].Value.Float64)

	if s.SetsLastUpdateAutomatically() {
		assert.True(t, meta.LastUpdate.After(before), "automatic stores stamp last update on write")
	}
}

func testStamps(t *testing.T, s interfaces.Storage) {
	ctx := context.Background()
	full := UniqueTicker("F")
	require.NoError(t, s.Write(ctx, SampleSeries(t, full), models.NewRecordFromFull(full), true))

	refresh := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	update := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastRefresh(ctx, full, refresh))
	require.NoError(t, s.SetLastUpdate(ctx, full, update))

	got, err := s.GetLastRefresh(ctx, full)
	require.NoError(t, err)
	assert.True(t, got.Equal(refresh), "got %s", got)

	meta, err := s.GetMetadata(ctx, full.String())
	require.NoError(t, err)
	assert.True(t, meta.LastRefresh.Equal(refresh))
	assert.True(t, meta.LastUpdate.Equal(update))
}

func testOverwrite(t *testing.T, s interfaces.Storage) {
	full := UniqueTicker("F")
	err := s.Write(context.Background(), SampleSeries(t, full), models.NewRecordFromFull(full), false)
	assert.ErrorIs(t, err, models.ErrNotImplemented)
}

func testDelete(t *testing.T, s interfaces.Storage) {
	ctx := context.Background()
	full := UniqueTicker("F")
	rec := models.NewRecordFromFull(full)
	require.NoError(t, s.Write(ctx, SampleSeries(t, full), rec, true))
	require.NoError(t, s.Delete(ctx, rec))

	ok, err := s.Has(ctx, full)
	require.NoError(t, err)
	assert.False(t, ok)
}
