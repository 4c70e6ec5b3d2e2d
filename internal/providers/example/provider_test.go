package example

import (
	"context"
	"testing"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_TEST1(t *testing.T) {
	p := New("")
	rec := models.NewRecordFromFull(tickers.MustFull("TEST@TEST1"))

	res, err := p.Fetch(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, 2, res.Series.Len())
	assert.Equal(t, 1.0, res.Series.Observations[0].Value.Float64)
	assert.Equal(t, 2.0, res.Series.Observations[1].Value.Float64)
	assert.Equal(t, "TEST1", res.Record.Name)
	assert.False(t, res.TableWasFetched())
	assert.Empty(t, rec.Name, "input record is not modified")
}

func TestFetch_Unknown(t *testing.T) {
	p := New("TEST")
	_, err := p.Fetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("TEST@OTHER")))
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
	assert.False(t, p.Info().External)
}
