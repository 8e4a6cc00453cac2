package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/weather-screen/internal/domain/screen"
	"github.com/yanqian/weather-screen/internal/domain/weather"
	"github.com/yanqian/weather-screen/internal/infra/config"
	"github.com/yanqian/weather-screen/internal/infra/weatherapi"
	apperrors "github.com/yanqian/weather-screen/pkg/errors"
	"github.com/yanqian/weather-screen/pkg/logger"
)

func TestRouter_ScreenRendersView(t *testing.T) {
	svc := &stubScreen{state: loadedState()}

	recorder := performRequest(http.MethodGet, "/api/v1/screen", "", newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusOK, recorder.Code)

	var view screen.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &view))
	require.Equal(t, screen.StatusReady, view.Status)
	require.Equal(t, "Mumbai, India", view.Current.Location)
	require.Len(t, view.Daily, 2)
	require.Equal(t, "Mon", view.Daily[0].Day)
}

func TestRouter_EditQuery(t *testing.T) {
	svc := &stubScreen{state: loadedState()}
	server := newRouterUnderTest(t, svc, &stubWeather{})

	recorder := performRequest(http.MethodPut, "/api/v1/screen/query", `{"query":"Lon"}`, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, []string{"Lon"}, svc.queries)

	recorder = performRequest(http.MethodPut, "/api/v1/screen/query", `{"query":""}`, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, []string{"Lon", ""}, svc.queries)
}

func TestRouter_EditQueryRequiresField(t *testing.T) {
	svc := &stubScreen{}

	recorder := performRequest(http.MethodPut, "/api/v1/screen/query", `{}`, newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Empty(t, svc.queries)
}

func TestRouter_SelectByIndex(t *testing.T) {
	svc := &stubScreen{state: loadedState()}

	recorder := performRequest(http.MethodPost, "/api/v1/screen/selection", `{"index":1}`, newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, []int{1}, svc.indexes)
	require.Empty(t, svc.locations)
}

func TestRouter_SelectByIndexOutOfRange(t *testing.T) {
	svc := &stubScreen{err: apperrors.Wrap(apperrors.CodeInvalidInput, "no candidate at that position", nil)}

	recorder := performRequest(http.MethodPost, "/api/v1/screen/selection", `{"index":9}`, newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "no candidate")
}

func TestRouter_SelectByName(t *testing.T) {
	svc := &stubScreen{state: loadedState()}

	recorder := performRequest(http.MethodPost, "/api/v1/screen/selection", `{"name":" Paris ","country":"France"}`, newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, []weather.Location{{Name: "Paris", Country: "France"}}, svc.locations)
}

func TestRouter_SelectNeedsIndexOrName(t *testing.T) {
	svc := &stubScreen{}

	recorder := performRequest(http.MethodPost, "/api/v1/screen/selection", `{"country":"France"}`, newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Empty(t, svc.locations)
	require.Empty(t, svc.indexes)
}

func TestRouter_ToggleAndRetry(t *testing.T) {
	svc := &stubScreen{state: loadedState()}
	server := newRouterUnderTest(t, svc, &stubWeather{})

	require.Equal(t, http.StatusOK, performRequest(http.MethodPost, "/api/v1/screen/units/toggle", "", server).Code)
	require.Equal(t, http.StatusOK, performRequest(http.MethodPost, "/api/v1/screen/retry", "", server).Code)
	require.Equal(t, 1, svc.toggles)
	require.Equal(t, 1, svc.retries)
}

func TestRouter_ScreenStopped(t *testing.T) {
	svc := &stubScreen{err: apperrors.Wrap(apperrors.CodeScreenStopped, "screen is not running", nil)}

	recorder := performRequest(http.MethodGet, "/api/v1/screen", "", newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, "screen_unavailable", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_LocationsUpstreamFailure(t *testing.T) {
	client := &stubWeather{
		locationsFn: func(ctx context.Context, city string) ([]weather.Location, error) {
			require.Equal(t, "São Paulo", city)
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailed, "search request to weather api failed", nil)
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/locations?q=S%C3%A3o+Paulo", "", newRouterUnderTest(t, &stubScreen{}, client))
	require.Equal(t, http.StatusBadGateway, recorder.Code)
	require.Equal(t, apperrors.CodeUpstreamFailed, decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_Locations(t *testing.T) {
	client := &stubWeather{
		locationsFn: func(ctx context.Context, city string) ([]weather.Location, error) {
			return []weather.Location{{Name: "London", Country: "United Kingdom"}}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/locations?q=Lon", "", newRouterUnderTest(t, &stubScreen{}, client))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Locations []weather.Location `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "London", body.Locations[0].Name)
}

func TestRouter_ForecastDefaultsToConfiguredHorizon(t *testing.T) {
	var gotDays int
	client := &stubWeather{
		forecastFn: func(ctx context.Context, city string, days int) (weather.Snapshot, error) {
			gotDays = days
			return weather.Snapshot{Location: weather.Location{Name: city}}, nil
		},
	}
	server := newRouterUnderTest(t, &stubScreen{}, client)

	recorder := performRequest(http.MethodGet, "/api/v1/forecast?city=Oslo", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 7, gotDays)

	recorder = performRequest(http.MethodGet, "/api/v1/forecast?city=Oslo&days=3", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 3, gotDays)

	recorder = performRequest(http.MethodGet, "/api/v1/forecast?city=Oslo&days=week", "", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_RequestID(t *testing.T) {
	server := newRouterUnderTest(t, &stubScreen{}, &stubWeather{})

	recorder := performRequest(http.MethodGet, "/healthz", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, recorder.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newRouterUnderTest(t, &stubScreen{}, &stubWeather{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/screen/query", nil)
	req.Header.Set("Origin", "https://screen.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://screen.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestRouter_Metrics(t *testing.T) {
	server := newRouterUnderTest(t, &stubScreen{}, &stubWeather{})

	recorder := performRequest(http.MethodGet, "/metrics", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "go_goroutines")
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := newRouterWithConfig(t, cfg, &stubScreen{state: loadedState()}, &stubWeather{})

	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/api/v1/screen", "", server).Code)

	recorder := performRequest(http.MethodGet, "/api/v1/screen", "", server)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])

	// health checks sit outside the limited group
	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/healthz", "", server).Code)
}

func TestRouter_UpstreamQuotaIsSharedAcrossClients(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, Burst: 100, UpstreamRequestsPerMinute: 1, UpstreamBurst: 1}
	server := newRouterWithConfig(t, cfg, &stubScreen{state: loadedState()}, &stubWeather{})

	first := httptest.NewRequest(http.MethodGet, "/api/v1/locations?q=Lon", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodGet, "/api/v1/forecast?city=Oslo", nil)
	second.RemoteAddr = "10.0.0.2:5000"
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, second)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.Equal(t, "upstream_quota_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	// the screen routes only spend the per-client budget
	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/api/v1/screen", "", server).Code)
}

func TestRouter_UpstreamFailureHidesAPIKey(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer upstreamSrv.Close()
	client := weatherapi.NewClient(weatherapi.Options{APIKey: "SUPERSECRETKEY", BaseURL: upstreamSrv.URL}, nil, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast?city=Paris", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, &stubScreen{}, client).Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotContains(t, rec.Body.String(), "SUPERSECRETKEY")
	require.NotContains(t, rec.Body.String(), "forecast.json")
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, apperrors.CodeUpstreamFailed, errBody["error"]["code"])
	require.Equal(t, "weather provider request failed", errBody["error"]["message"])
	require.Equal(t, "req-42", errBody["error"]["requestId"])
}

func TestRouter_InternalErrorsUseGenericMessage(t *testing.T) {
	svc := &stubScreen{err: errors.New("disk on fire at /var/lib/secret")}

	recorder := performRequest(http.MethodGet, "/api/v1/screen", "", newRouterUnderTest(t, svc, &stubWeather{}))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "screen_failed", errBody["error"]["code"])
	require.Equal(t, "something went wrong", errBody["error"]["message"])
}

func TestTokenLimiterRefills(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	limiter := newTokenLimiter(60, 2, func() time.Time { return now })

	require.True(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.2"), "buckets are per address")

	now = now.Add(time.Second)
	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Screen: config.ScreenConfig{ForecastDays: 7},
	}
}

func newRouterUnderTest(t *testing.T, svc ScreenService, client weather.Client) *http.Server {
	t.Helper()
	return newRouterWithConfig(t, testConfig(), svc, client)
}

func newRouterWithConfig(t *testing.T, cfg *config.Config, svc ScreenService, client weather.Client) *http.Server {
	t.Helper()
	log := logger.Discard()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	return NewRouter(cfg, NewHandler(cfg, svc, client, log), registry, log)
}

func loadedState() screen.State {
	return screen.State{
		Phase:      screen.PhaseLoaded,
		UseCelsius: true,
		City:       "Mumbai",
		Snapshot: &weather.Snapshot{
			Location: weather.Location{Name: "Mumbai", Country: "India"},
			Current:  weather.Current{TempC: 30, TempF: 86, Condition: "Mist", WindKPH: 9, Humidity: 79},
			Forecast: []weather.DayForecast{
				{Date: "2024-07-01", AvgTempC: 29, AvgTempF: 84.2, Condition: "Heavy rain"},
				{Date: "2024-07-02", AvgTempC: 28, AvgTempF: 82.4, Condition: "Moderate rain"},
			},
		},
	}
}

type stubScreen struct {
	state     screen.State
	err       error
	queries   []string
	indexes   []int
	locations []weather.Location
	toggles   int
	retries   int
}

func (s *stubScreen) State(ctx context.Context) (screen.State, error) {
	return s.state, s.err
}

func (s *stubScreen) EditQuery(ctx context.Context, query string) (screen.State, error) {
	s.queries = append(s.queries, query)
	return s.state, s.err
}

func (s *stubScreen) SelectCandidate(ctx context.Context, index int) (screen.State, error) {
	s.indexes = append(s.indexes, index)
	return s.state, s.err
}

func (s *stubScreen) SelectLocation(ctx context.Context, loc weather.Location) (screen.State, error) {
	s.locations = append(s.locations, loc)
	return s.state, s.err
}

func (s *stubScreen) ToggleUnits(ctx context.Context) (screen.State, error) {
	s.toggles++
	return s.state, s.err
}

func (s *stubScreen) Retry(ctx context.Context) (screen.State, error) {
	s.retries++
	return s.state, s.err
}

type stubWeather struct {
	locationsFn func(ctx context.Context, city string) ([]weather.Location, error)
	forecastFn  func(ctx context.Context, city string, days int) (weather.Snapshot, error)
}

func (s *stubWeather) FetchLocations(ctx context.Context, city string) ([]weather.Location, error) {
	if s.locationsFn != nil {
		return s.locationsFn(ctx, city)
	}
	return []weather.Location{}, nil
}

func (s *stubWeather) FetchForecast(ctx context.Context, city string, days int) (weather.Snapshot, error) {
	if s.forecastFn != nil {
		return s.forecastFn(ctx, city, days)
	}
	return weather.Snapshot{}, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

var _ ScreenService = (*screen.Orchestrator)(nil)
