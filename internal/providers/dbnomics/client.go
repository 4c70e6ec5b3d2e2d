// Package dbnomics fetches series from the DBnomics aggregation API.
package dbnomics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/econdata/internal/common"
)

const (
	DefaultBaseURL   = "https://api.db.nomics.world/v22"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5
)

// Client is a rate-limited DBnomics API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new DBnomics client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("DBnomics API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// flexValue decodes a number or the "NA" marker.
type flexValue struct {
	v     float64
	valid bool
}

func (f *flexValue) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.v, f.valid = num, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			f.v, f.valid = n, true
		}
		// "NA" and friends are missing
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into a series value", string(data))
}

type seriesDoc struct {
	ProviderCode   string            `json:"provider_code"`
	DatasetCode    string            `json:"dataset_code"`
	DatasetName    string            `json:"dataset_name"`
	SeriesCode     string            `json:"series_code"`
	SeriesName     string            `json:"series_name"`
	Frequency      string            `json:"@frequency"`
	Period         []string          `json:"period"`
	PeriodStartDay []string          `json:"period_start_day"`
	Value          []flexValue       `json:"value"`
	Dimensions     map[string]string `json:"dimensions"`
}

type seriesResponse struct {
	Series struct {
		NumFound int         `json:"num_found"`
		Docs     []seriesDoc `json:"docs"`
	} `json:"series"`
}

func (c *Client) fetchSeries(ctx context.Context, query string) (*seriesResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	path := "/series/" + strings.Trim(query, "/")
	params := url.Values{"observations": {"1"}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("DBnomics API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}

	var out seriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
