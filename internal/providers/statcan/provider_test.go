package statcan

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableCSV = "\ufeff\"REF_DATE\",\"GEO\",\"DGUID\",\"Prices\",\"UOM\",\"VECTOR\",\"COORDINATE\",\"VALUE\"\n" +
	"\"2020-01\",\"Canada\",\"2016A000011124\",\"All-items\",\"Index\",\"v41690973\",\"2.2\",\"136.8\"\n" +
	"\"2020-02\",\"Canada\",\"2016A000011124\",\"All-items\",\"Index\",\"v41690973\",\"2.2\",\"137.4\"\n" +
	"\"2020-01\",\"Canada\",\"2016A000011124\",\"Food\",\"Index\",\"v41690974\",\"2.3\",\"150.1\"\n" +
	"\"2020-02\",\"Canada\",\"2016A000011124\",\"Food\",\"Index\",\"v41690974\",\"2.3\",\"..\"\n" +
	"\"2020-01\",\"Canada\",\"2016A000011124\",\"Shelter\",\"Index\",\"v41690975\",\"2.4\",\"148.0\"\n"

func writeCSV(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "18100004.csv"), []byte(tableCSV), 0644))
}

func writeZip(t *testing.T, dir string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "18100004-eng.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("18100004.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(tableCSV))
	require.NoError(t, err)
	_, err = zw.Create("18100004_MetaData.csv")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func record(t *testing.T, full string) *models.SeriesRecord {
	t.Helper()
	return models.NewRecordFromFull(tickers.MustFull(full))
}

func TestFetch_ReturnsVectorAndTable(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir)
	p := NewProvider("", dir, "", common.NewSilentLogger())

	res, err := p.Fetch(context.Background(), record(t, "CCSV@18100004|v41690973"))
	require.NoError(t, err)

	require.Equal(t, 2, res.Series.Len())
	assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), res.Series.Observations[1].Date)
	assert.Equal(t, 137.4, res.Series.Observations[1].Value.Float64)
	assert.Equal(t, "Canada; All-items", res.Record.Name)
	assert.Equal(t, "v41690973", res.Record.ProviderMetadata["VECTOR"])
	assert.NotContains(t, res.Record.ProviderMetadata, "VALUE")

	require.True(t, res.TableWasFetched())
	assert.Len(t, res.Table, 3)
	food := res.Table["CCSV@18100004|v41690974"]
	assert.Equal(t, 1, food.Series.Len(), "non-numeric values are skipped")
}

func TestFetch_UnknownVectorReturnsTable(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, dir)
	p := NewProvider("CCSV", dir, "-eng.zip", common.NewSilentLogger())

	res, err := p.Fetch(context.Background(), record(t, "CCSV@18100004|v1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTickerNotFound)
	require.NotNil(t, res)
	assert.Len(t, res.Table, 3)
}

func TestFetch_MissingTable(t *testing.T) {
	p := NewProvider("CCSV", t.TempDir(), "", common.NewSilentLogger())
	_, err := p.Fetch(context.Background(), record(t, "CCSV@99999999|v1"))
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestFetch_MalformedQuery(t *testing.T) {
	p := NewProvider("CCSV", t.TempDir(), "", common.NewSilentLogger())
	_, err := p.Fetch(context.Background(), record(t, "CCSV@18100004"))
	assert.ErrorIs(t, err, models.ErrPlatform)
	assert.ErrorIs(t, err, tickers.ErrInvalidTicker)
}

func TestSeriesURL(t *testing.T) {
	p := NewProvider("CCSV", "", "", common.NewSilentLogger())
	url, err := p.SeriesURL(record(t, "CCSV@18100004|v41690973"))
	require.NoError(t, err)
	assert.Equal(t, "https://www150.statcan.gc.ca/t1/tbl1/en/tv.action?pid=18100004", url)

	_, err = p.SeriesURL(record(t, "CCSV@bad"))
	assert.Error(t, err)
}

func TestParseRefDate(t *testing.T) {
	d, err := parseRefDate("2019-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 6, 30, 0, 0, 0, 0, time.UTC), d)

	_, err = parseRefDate("2019/06")
	assert.Error(t, err)
}
