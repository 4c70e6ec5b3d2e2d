package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_RegisteredFunction(t *testing.T) {
	p := New("")
	p.Handle("ONES", func(_ context.Context, query string) (models.Series, error) {
		return models.NewSeries(query, []models.Observation{
			models.Obs(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 1),
		})
	})

	res, err := p.Fetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("U@ONES")))
	require.NoError(t, err)
	assert.Equal(t, "U@ONES", res.Series.Ticker)
	assert.Equal(t, 1, res.Series.Len())
	assert.Nil(t, res.Record)
}

func TestFetch_Unregistered(t *testing.T) {
	p := New("U")
	_, err := p.Fetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("U@NONE")))
	assert.ErrorIs(t, err, models.ErrNotImplemented)
}

func TestFetch_FunctionError(t *testing.T) {
	boom := errors.New("boom")
	p := New("U")
	p.Handle("BAD", func(context.Context, string) (models.Series, error) { return models.Series{}, boom })

	_, err := p.Fetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("U@BAD")))
	assert.ErrorIs(t, err, boom)
}
