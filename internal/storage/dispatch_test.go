package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage"
	"github.com/bobmcallan/econdata/internal/storage/memory"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareStore hides every optional capability of the wrapped store.
type bareStore struct {
	interfaces.Storage
}

func (b bareStore) GetMetadata(ctx context.Context, raw string) (*models.SeriesRecord, error) {
	return storage.ResolveMetadata(ctx, b, raw)
}

func seed(t *testing.T, s interfaces.Storage, full string) (models.Series, *models.SeriesRecord) {
	t.Helper()
	rec := models.NewRecordFromFull(tickers.MustFull(full))
	rec.Name = "seeded"
	series, err := models.NewSeries(full, []models.Observation{
		models.Obs(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 1),
		models.Obs(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC), 2),
	})
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), series, rec, true))
	return series, rec
}

func TestResolveMetadata_FullTickerDefaultPath(t *testing.T) {
	ctx := context.Background()
	s := bareStore{memory.NewStore("M")}
	seed(t, s, "TEST@TEST1")

	rec, err := s.GetMetadata(ctx, "TEST@TEST1")
	require.NoError(t, err)
	assert.True(t, rec.Exists)
	assert.Equal(t, "TEST", rec.ProviderCode.String())
	assert.Equal(t, "TEST1", rec.QueryTicker.String())
	assert.Empty(t, rec.Name, "default path leaves descriptive fields empty")

	rec, err = s.GetMetadata(ctx, "TEST@OTHER")
	require.NoError(t, err)
	assert.False(t, rec.Exists)
}

func TestResolveMetadata_OptionalCapabilities(t *testing.T) {
	ctx := context.Background()
	s := bareStore{memory.NewStore("M")}

	_, err := s.GetMetadata(ctx, "gdp")
	assert.ErrorIs(t, err, models.ErrNotImplemented)

	_, err = s.GetMetadata(ctx, "CAN|gdp")
	assert.ErrorIs(t, err, models.ErrNotImplemented)

	_, err = s.GetMetadata(ctx, "")
	assert.ErrorIs(t, err, tickers.ErrInvalidTicker)
}

func TestResolveMetadata_LocalAlias(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore("M")
	seed(t, s, "F@GDP")
	local, _ := tickers.NewLocalTicker("us_gdp")
	require.NoError(t, s.SetAlias(ctx, local, tickers.MustFull("F@GDP")))

	rec, err := s.GetMetadata(ctx, "us_gdp")
	require.NoError(t, err)
	assert.True(t, rec.Exists)
	assert.Equal(t, "F@GDP", rec.FullTicker.String())
	assert.Equal(t, local, rec.LocalTicker)
	assert.Equal(t, "seeded", rec.Name)
}

func TestRetrieveWithMeta(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore("M")
	want, _ := seed(t, s, "F@GDP")

	got, rec, err := storage.RetrieveWithMeta(ctx, s, tickers.MustFull("F@GDP"))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, "seeded", rec.Name)

	_, _, err = storage.RetrieveWithMeta(ctx, s, tickers.MustFull("F@CPI"))
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	src := memory.NewStore("SRC")
	dst := memory.NewStore("DST")
	want, _ := seed(t, src, "F@GDP")
	full := tickers.MustFull("F@GDP")
	refreshed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, src.SetLastRefresh(ctx, full, refreshed))

	require.NoError(t, storage.Transfer(ctx, full, src, dst))

	got, rec, err := storage.RetrieveWithMeta(ctx, dst, full)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, "seeded", rec.Name)
	assert.True(t, rec.LastRefresh.Equal(refreshed))

	err = storage.Transfer(ctx, tickers.MustFull("F@NONE"), src, dst)
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
}

func TestMemoryWrite_OverwriteFalse(t *testing.T) {
	s := memory.NewStore("M")
	rec := models.NewRecordFromFull(tickers.MustFull("F@GDP"))
	err := s.Write(context.Background(), models.Series{}, rec, false)
	assert.ErrorIs(t, err, models.ErrNotImplemented)
}
