package postgres

import (
	"context"
	"testing"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/storage/storagetest"
	"github.com/bobmcallan/econdata/internal/testenv"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := testenv.PostgresDSN(t)
	s, err := NewStore(context.Background(), common.NewSilentLogger(), "", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Conformance(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, DefaultCode, s.Code())
	assert.True(t, s.SetsLastUpdateAutomatically())
	storagetest.Run(t, s)
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, RunMigrations(s.db))
}

func TestStore_DataTypeLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	full := storagetest.UniqueTicker("F")
	require.NoError(t, s.Write(ctx, storagetest.SampleSeries(t, full), models.NewRecordFromFull(full), true))

	dt, err := tickers.NewDataTypeTicker(full.String()[2:] + "|GDP")
	require.NoError(t, err)
	require.NoError(t, s.SetDataType(ctx, dt, full))

	meta, err := s.GetMetadata(ctx, dt.String())
	require.NoError(t, err)
	assert.True(t, meta.Exists)
	assert.Equal(t, full, meta.FullTicker)
	assert.NotZero(t, meta.SeriesID)

	missing, err := tickers.NewDataTypeTicker("NOWHERE|GDP")
	require.NoError(t, err)
	_, err = s.GetMetadata(ctx, missing.String())
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
}

func TestStore_RewriteKeepsAliases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	full := storagetest.UniqueTicker("F")
	require.NoError(t, s.Write(ctx, storagetest.SampleSeries(t, full), models.NewRecordFromFull(full), true))

	local, err := tickers.NewLocalTicker("alias_" + full.String()[2:])
	require.NoError(t, err)
	require.NoError(t, s.SetAlias(ctx, local, full))

	// Provider records carry no aliases; a rewrite must not clear them.
	rec := models.NewRecordFromFull(full)
	rec.Name = "Renamed"
	require.NoError(t, s.Write(ctx, models.Series{Ticker: full.String()}, rec, true))

	meta, err := s.GetMetadata(ctx, local.String())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", meta.Name)

	series, err := s.Retrieve(ctx, meta)
	require.NoError(t, err)
	assert.True(t, series.IsEmpty())
}

func TestNewStore_EmptyDSN(t *testing.T) {
	_, err := NewStore(context.Background(), common.NewSilentLogger(), "", "")
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
