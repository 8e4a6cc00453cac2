package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/weather-screen/internal/domain/weather"
	apperrors "github.com/yanqian/weather-screen/pkg/errors"
	"github.com/yanqian/weather-screen/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.weatherapi.com/v1"
	defaultTimeout = 10 * time.Second

	opSearch   = "search"
	opForecast = "forecast"
)

// Client talks to weatherapi.com.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Upstream
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient builds an API client.
func NewClient(opts Options, upstream *metrics.Upstream, logger *slog.Logger) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: upstream,
		logger:  logger.With("component", "weatherapi.client"),
	}
}

// FetchLocations returns the candidates matching a partial city name, in
// upstream order.
func (c *Client) FetchLocations(ctx context.Context, cityName string) ([]weather.Location, error) {
	city := strings.TrimSpace(cityName)
	if city == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "city name cannot be empty", nil)
	}

	var raw []apiLocation
	if err := c.get(ctx, opSearch, c.searchEndpoint(city), &raw); err != nil {
		return nil, err
	}

	locations := make([]weather.Location, 0, len(raw))
	for _, loc := range raw {
		locations = append(locations, loc.toDomain())
	}
	return locations, nil
}

// FetchForecast returns current conditions plus the requested forecast horizon.
// The number of days is whatever upstream sends back.
func (c *Client) FetchForecast(ctx context.Context, cityName string, days int) (weather.Snapshot, error) {
	city := strings.TrimSpace(cityName)
	if city == "" {
		return weather.Snapshot{}, apperrors.Wrap(apperrors.CodeInvalidInput, "city name cannot be empty", nil)
	}
	if days < 1 {
		return weather.Snapshot{}, apperrors.Wrap(apperrors.CodeInvalidInput, "forecast horizon must be at least one day", nil)
	}

	var raw apiForecast
	if err := c.get(ctx, opForecast, c.forecastEndpoint(city, days), &raw); err != nil {
		return weather.Snapshot{}, err
	}
	return raw.toDomain(), nil
}

func (c *Client) searchEndpoint(city string) string {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", city)
	return c.baseURL + "/search.json?" + params.Encode()
}

func (c *Client) forecastEndpoint(city string, days int) string {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", city)
	params.Set("days", strconv.Itoa(days))
	params.Set("aqi", "no")
	params.Set("alerts", "no")
	return c.baseURL + "/forecast.json?" + params.Encode()
}

func (c *Client) get(ctx context.Context, operation, endpoint string, out any) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe(operation, started, err)
		if err != nil {
			c.logger.Error("weather api call failed", "operation", operation, "error", err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return upstreamError(operation, fmt.Errorf("build request: %w", withoutURL(err)))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstreamError(operation, fmt.Errorf("request failed: %w", withoutURL(err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return upstreamError(operation, fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return upstreamError(operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// withoutURL drops the request URL from transport errors; it carries the API key.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func upstreamError(operation string, err error) error {
	return apperrors.Wrap(apperrors.CodeUpstreamFailed, operation+" request to weather api failed", err)
}
