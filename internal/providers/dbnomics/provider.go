package dbnomics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
)

// DefaultCode is the provider code used when none is configured.
const DefaultCode = "D"

// Provider serves "<provider>/<dataset>/<series>" query tickers.
type Provider struct {
	code   string
	client *Client
	logger *common.Logger
}

// NewProvider returns a DBnomics provider registered under code.
func NewProvider(code string, client *Client, logger *common.Logger) *Provider {
	if code == "" {
		code = DefaultCode
	}
	return &Provider{code: code, client: client, logger: logger}
}

func (p *Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{
		Code:     p.code,
		Name:     "DBnomics",
		External: true,
		WebPage:  "https://db.nomics.world/",
	}
}

// SeriesURL links to the series page on db.nomics.world.
func (p *Provider) SeriesURL(rec *models.SeriesRecord) (string, error) {
	if rec.QueryTicker.IsZero() {
		return "", fmt.Errorf("record has no query ticker")
	}
	return "https://db.nomics.world/" + rec.QueryTicker.String(), nil
}

func (p *Provider) Fetch(ctx context.Context, rec *models.SeriesRecord) (*models.FetchResult, error) {
	query := rec.QueryTicker.String()
	resp, err := p.client.fetchSeries(ctx, query)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, models.NotFound(rec.FullTicker.String(), "DBnomics")
		}
		return nil, err
	}

	docs := resp.Series.Docs
	switch {
	case len(docs) == 0:
		return nil, models.NotFound(rec.FullTicker.String(), "DBnomics")
	case len(docs) > 1:
		return nil, fmt.Errorf("%w: query %q matched %d series", models.ErrNotImplemented, query, len(docs))
	}
	doc := docs[0]

	dates := doc.PeriodStartDay
	if len(dates) == 0 {
		dates = doc.Period
	}
	if len(dates) != len(doc.Value) {
		return nil, fmt.Errorf("DBnomics %s: %d periods but %d values", query, len(dates), len(doc.Value))
	}

	points := make([]models.Observation, 0, len(dates))
	for i, d := range dates {
		date, err := parsePeriod(d)
		if err != nil {
			return nil, fmt.Errorf("DBnomics %s: %w", query, err)
		}
		if doc.Value[i].valid {
			points = append(points, models.Obs(date, doc.Value[i].v))
		} else {
			points = append(points, models.MissingObs(date))
		}
	}
	series, err := models.NewSeries(rec.FullTicker.String(), points)
	if err != nil {
		return nil, err
	}

	out := rec.Clone()
	out.Name = doc.SeriesName
	if doc.SeriesName != "" {
		out.Description = fmt.Sprintf("%s : DB.nomics series %s", doc.SeriesName, query)
	}
	out.Frequency = doc.Frequency
	out.WebPage, _ = p.SeriesURL(rec)
	out.SetMeta("provider_code", doc.ProviderCode)
	out.SetMeta("dataset_code", doc.DatasetCode)
	out.SetMeta("dataset_name", doc.DatasetName)
	out.SetMeta("series_code", doc.SeriesCode)
	for k, v := range doc.Dimensions {
		out.SetMeta(k, v)
	}

	return &models.FetchResult{Series: series, Record: out}, nil
}

// parsePeriod accepts the day, month, quarter and year period forms.
func parsePeriod(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	var year, q int
	if _, err := fmt.Sscanf(s, "%d-Q%d", &year, &q); err == nil && q >= 1 && q <= 4 {
		return time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unknown period %q", s)
}
