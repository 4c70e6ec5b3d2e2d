package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	info models.ProviderInfo
	url  string
	err  error
}

func (s *stubProvider) Info() models.ProviderInfo { return s.info }

func (s *stubProvider) Fetch(context.Context, *models.SeriesRecord) (*models.FetchResult, error) {
	return nil, errors.New("not used")
}

type urlProvider struct {
	stubProvider
}

func (u *urlProvider) SeriesURL(rec *models.SeriesRecord) (string, error) {
	return u.url, u.err
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := &stubProvider{info: models.ProviderInfo{Code: "F", Name: "first"}}
	second := &stubProvider{info: models.ProviderInfo{Code: "F", Name: "second"}}

	r.RegisterProvider(first)
	r.Register("F", second)

	got, err := r.Get("F")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Info().Name)
	assert.Equal(t, []string{"F"}, r.Codes())
}

func TestRegistry_UnknownCode(t *testing.T) {
	_, err := NewRegistry().Get("ZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownProvider)
	assert.ErrorIs(t, err, models.ErrPlatform)
	assert.Contains(t, err.Error(), "ZZZ")
}

func TestSeriesURL(t *testing.T) {
	rec := models.NewRecordFromFull(tickers.MustFull("D@AMECO/ZUTN/EA19"))

	plain := &stubProvider{info: models.ProviderInfo{WebPage: "https://home"}}
	assert.Equal(t, "https://home", SeriesURL(plain, rec))

	good := &urlProvider{stubProvider{info: models.ProviderInfo{WebPage: "https://home"}, url: "https://series"}}
	assert.Equal(t, "https://series", SeriesURL(good, rec))

	failing := &urlProvider{stubProvider{info: models.ProviderInfo{WebPage: "https://home"}, err: errors.New("bad ticker")}}
	assert.Equal(t, "https://home", SeriesURL(failing, rec))
	assert.Equal(t, "https://home", SeriesURL(good, nil))
}
