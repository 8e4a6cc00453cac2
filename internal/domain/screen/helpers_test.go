package screen

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/weather-screen/internal/domain/preferences"
	"github.com/yanqian/weather-screen/internal/domain/weather"
	"github.com/yanqian/weather-screen/pkg/util"
)

var testEpoch = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

type forecastCall struct {
	City string
	Days int
}

type stubClient struct {
	mu         sync.Mutex
	lookups    []string
	forecasts  []forecastCall
	lookupFn   func(ctx context.Context, query string) ([]weather.Location, error)
	forecastFn func(ctx context.Context, city string, days int) (weather.Snapshot, error)
}

func (s *stubClient) FetchLocations(ctx context.Context, query string) ([]weather.Location, error) {
	s.mu.Lock()
	s.lookups = append(s.lookups, query)
	fn := s.lookupFn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, query)
	}
	return []weather.Location{{Name: query, Country: "Testland"}}, nil
}

func (s *stubClient) FetchForecast(ctx context.Context, city string, days int) (weather.Snapshot, error) {
	s.mu.Lock()
	s.forecasts = append(s.forecasts, forecastCall{City: city, Days: days})
	fn := s.forecastFn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, city, days)
	}
	return sampleSnapshot(city, 7), nil
}

func (s *stubClient) lookupCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

func (s *stubClient) forecastCalls() []forecastCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forecastCall(nil), s.forecasts...)
}

type stubPrefs struct {
	mu     sync.Mutex
	values map[string]string
	putErr error
	puts   int
	// hooks run before the lock is taken; set them before the screen starts
	beforeGet func()
	beforePut func(value string)
}

func newStubPrefs(initial map[string]string) *stubPrefs {
	values := make(map[string]string)
	for k, v := range initial {
		values[k] = v
	}
	return &stubPrefs{values: values}
}

func (p *stubPrefs) Put(_ context.Context, key, value string) preferences.Result {
	if p.beforePut != nil {
		p.beforePut(value)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.puts++
	if p.putErr != nil {
		return preferences.Result{Err: p.putErr}
	}
	p.values[key] = value
	return preferences.Result{Value: value, Found: true}
}

func (p *stubPrefs) Get(_ context.Context, key string) preferences.Result {
	if p.beforeGet != nil {
		p.beforeGet()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return preferences.Result{Value: v, Found: ok}
}

func (p *stubPrefs) value(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

func (p *stubPrefs) putCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.puts
}

// logSink collects log output so tests can wait on specific events.
type logSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logSink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logSink) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return bytes.Contains(l.buf.Bytes(), []byte(substr))
}

type harness struct {
	screen *Orchestrator
	clock  *util.FakeClock
	client *stubClient
	prefs  *stubPrefs
	logs   *logSink
	stop   func()
}

func startScreen(t *testing.T, client *stubClient, prefs *stubPrefs) *harness {
	t.Helper()
	clock := util.NewFakeClock(testEpoch)
	logs := &logSink{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := NewOrchestrator(DefaultConfig(), client, prefs, clock, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			require.NoError(t, <-errCh)
		})
	}
	t.Cleanup(stop)
	return &harness{screen: o, clock: clock, client: client, prefs: prefs, logs: logs, stop: stop}
}

func (h *harness) state(t *testing.T) State {
	t.Helper()
	s, err := h.screen.State(context.Background())
	require.NoError(t, err)
	return s
}

func (h *harness) waitFor(t *testing.T, cond func(State) bool) State {
	t.Helper()
	var (
		mu   sync.Mutex
		last State
	)
	require.Eventually(t, func() bool {
		s, err := h.screen.State(context.Background())
		if err != nil {
			return false
		}
		mu.Lock()
		last = s
		mu.Unlock()
		return cond(s)
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	return last
}

func (h *harness) waitLoaded(t *testing.T) State {
	t.Helper()
	return h.waitFor(t, func(s State) bool { return !s.Loading })
}

func sampleSnapshot(city string, days int) weather.Snapshot {
	forecast := make([]weather.DayForecast, 0, days)
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		forecast = append(forecast, weather.DayForecast{
			Date:      start.AddDate(0, 0, i).Format("2006-01-02"),
			AvgTempC:  20 + float64(i),
			AvgTempF:  68 + float64(i),
			Condition: "Sunny",
			Sunrise:   "05:4" + string(rune('0'+i)) + " AM",
		})
	}
	return weather.Snapshot{
		Location: weather.Location{Name: city, Country: "Testland"},
		Current: weather.Current{
			TempC:     21.5,
			TempF:     70.7,
			Condition: "Partly cloudy",
			WindKPH:   13,
			Humidity:  60,
		},
		Forecast: forecast,
	}
}

var errUpstream = errors.New("upstream down")
