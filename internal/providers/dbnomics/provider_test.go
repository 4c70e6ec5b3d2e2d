package dbnomics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const amecoBody = `{
  "series": {
    "num_found": 1,
    "docs": [{
      "provider_code": "AMECO",
      "dataset_code": "ZUTN",
      "dataset_name": "Unemployment rate",
      "series_code": "EA19.1.0.0.0.ZUTN",
      "series_name": "Euro area 19 – Unemployment rate",
      "@frequency": "annual",
      "period": ["2019", "2020", "2021"],
      "period_start_day": ["2019-01-01", "2020-01-01", "2021-01-01"],
      "value": [7.6, "NA", 7.7],
      "dimensions": {"geo": "ea19"}
    }]
  }
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/series/AMECO/ZUTN/EA19.1.0.0.0.ZUTN":
			w.Write([]byte(amecoBody))
		case "/series/AMECO/ZUTN/EMPTY":
			w.Write([]byte(`{"series":{"num_found":0,"docs":[]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Series(t *testing.T) {
	srv := newServer(t)
	p := NewProvider("D", NewClient(WithBaseURL(srv.URL)), common.NewSilentLogger())

	rec := models.NewRecordFromFull(tickers.MustFull("D@AMECO/ZUTN/EA19.1.0.0.0.ZUTN"))
	res, err := p.Fetch(context.Background(), rec)
	require.NoError(t, err)

	require.Equal(t, 3, res.Series.Len())
	assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), res.Series.Observations[0].Date)
	assert.False(t, res.Series.Observations[1].Value.Valid, "NA is missing")
	assert.Equal(t, 7.7, res.Series.Observations[2].Value.Float64)
	assert.Equal(t, "annual", res.Record.Frequency)
	assert.Equal(t, "ea19", res.Record.ProviderMetadata["geo"])
	assert.Equal(t, "https://db.nomics.world/AMECO/ZUTN/EA19.1.0.0.0.ZUTN", res.Record.WebPage)
}

func TestFetch_NotFound(t *testing.T) {
	srv := newServer(t)
	p := NewProvider("D", NewClient(WithBaseURL(srv.URL)), common.NewSilentLogger())

	_, err := p.Fetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("D@AMECO/ZUTN/NOPE")))
	assert.ErrorIs(t, err, models.ErrTickerNotFound)

	_, err = p.Fetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("D@AMECO/ZUTN/EMPTY")))
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
}

func TestParsePeriod(t *testing.T) {
	got, err := parsePeriod("2020-Q3")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parsePeriod("2020-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parsePeriod("sometime")
	assert.Error(t, err)
}
