package fred

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
)

// DefaultCode is the provider code used when none is configured.
const DefaultCode = "F"

// Provider adapts the FRED client to the provider capability.
type Provider struct {
	code   string
	client *Client
	logger *common.Logger
}

// NewProvider returns a FRED provider registered under code.
func NewProvider(code string, client *Client, logger *common.Logger) *Provider {
	if code == "" {
		code = DefaultCode
	}
	return &Provider{code: code, client: client, logger: logger}
}

func (p *Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		Code:     p.code,
		Name:     "FRED",
		External: true,
		WebPage:  "https://fred.stlouisfed.org/",
	}
}

// SeriesURL links to the FRED series page.
func (p *Provider) SeriesURL(rec *models.SeriesRecord) (string, error) {
	if rec.QueryTicker.IsZero() {
		return "", fmt.Errorf("record has no query ticker")
	}
	return "https://fred.stlouisfed.org/series/" + rec.QueryTicker.String(), nil
}

func (p *Provider) Fetch(ctx context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	if p.client.apiKey == "" {
		return nil, fmt.Errorf("%w: FRED api key is not set (providers.fred.api_key or FRED_API_KEY)", models.ErrConfiguration)
	}
	seriesID := rec.QueryTicker.String()

	obs, err := p.client.observations(ctx, seriesID)
	if err != nil {
		return nil, p.mapError(rec, err)
	}

	points := make([]models.Observation, 0, len(obs.Observations))
	for _, o := range obs.Observations {
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, fmt.Errorf("FRED %s: bad date %q: %w", seriesID, o.Date, err)
		}
		// "." marks a missing observation
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			points = append(points, models.MissingObs(date))
			continue
		}
		points = append(points, models.Obs(date, v))
	}
	series, err := models.NewSeries(rec.FullTicker.String(), points)
	if err != nil {
		return nil, err
	}

	out := rec.Clone()
	out.WebPage, _ = p.SeriesURL(rec)
	meta, err := p.client.series(ctx, seriesID)
	if err != nil {
		p.logger.Warn().Err(err).Str("series_id", seriesID).Msg("FRED series metadata unavailable")
	} else if len(meta.Series) > 0 {
		m := meta.Series[0]
		out.Name = m.Title
		out.Description = fmt.Sprintf("%s (%s, %s)", m.Title, m.Units, m.SeasonalAdjustment)
		out.Frequency = m.Frequency
		out.SetMeta("units", m.Units)
		out.SetMeta("seasonal_adjustment", m.SeasonalAdjustment)
		out.SetMeta("last_updated", m.LastUpdated)
	}

	return &models.FetchResult{Series: series, Record: out}, nil
}

func (p *Provider) mapError(rec *models.SeriesRecord, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound) {
		return fmt.Errorf("%w: %s", models.NotFound(rec.FullTicker.String(), "FRED"), apiErr.Message)
	}
	return err
}
