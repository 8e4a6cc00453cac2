package screen

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/yanqian/weather-screen/internal/domain/preferences"
	"github.com/yanqian/weather-screen/internal/domain/weather"
	apperrors "github.com/yanqian/weather-screen/pkg/errors"
	"github.com/yanqian/weather-screen/pkg/util"
)

const mailboxSize = 64

var errStopped = apperrors.Wrap(apperrors.CodeScreenStopped, "screen is not running", nil)

// Preferences is the persistence boundary the screen needs.
type Preferences interface {
	Put(ctx context.Context, key, value string) preferences.Result
	Get(ctx context.Context, key string) preferences.Result
}

// Orchestrator owns the screen state. All state changes happen on the single
// goroutine running Run; network and storage calls run elsewhere and post
// their results back through the mailbox.
type Orchestrator struct {
	cfg      Config
	client   weather.Client
	prefs    Preferences
	logger   *slog.Logger
	debounce *debouncer

	mailbox chan func()
	done    chan struct{}
	runOnce sync.Once

	ioCtx    context.Context
	ioCancel context.CancelFunc
	inflight sync.WaitGroup

	// city writes run one at a time and only the newest is applied
	persistMu  sync.Mutex
	persistSeq atomic.Uint64

	// touched only by the actor goroutine
	state State
}

// NewOrchestrator wires up the screen.
func NewOrchestrator(cfg Config, client weather.Client, prefs Preferences, clock util.Clock, logger *slog.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	ioCtx, ioCancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		client:   client,
		prefs:    prefs,
		logger:   logger.With("component", "screen.orchestrator"),
		debounce: newDebouncer(clock, cfg.Debounce),
		mailbox:  make(chan func(), mailboxSize),
		done:     make(chan struct{}),
		ioCtx:    ioCtx,
		ioCancel: ioCancel,
		state:    initialState(),
	}
}

// Run loads the initial forecast and processes events until ctx is done.
// Tearing down releases the debounce timer and drops late I/O results.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := false
	o.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("screen orchestrator already started")
	}

	o.loadInitial()
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case fn := <-o.mailbox:
			fn()
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.debounce.cancel()
	close(o.done)
	o.ioCancel()
	o.inflight.Wait()
	o.logger.Info("screen stopped")
}

// State returns the current state.
func (o *Orchestrator) State(ctx context.Context) (State, error) {
	return o.exec(ctx, func() {})
}

// EditQuery updates the search text and (re)arms the debounced lookup.
func (o *Orchestrator) EditQuery(ctx context.Context, query string) (State, error) {
	return o.exec(ctx, func() { o.onQueryEdited(query) })
}

// SelectCandidate picks an entry of the current candidate list.
func (o *Orchestrator) SelectCandidate(ctx context.Context, index int) (State, error) {
	var selectErr error
	s, err := o.exec(ctx, func() {
		loc, ok := candidateAt(o.state, index)
		if !ok {
			selectErr = apperrors.Wrap(apperrors.CodeInvalidInput, "no candidate at that position", nil)
			return
		}
		o.onLocationSelected(loc)
	})
	if err != nil {
		return State{}, err
	}
	return s, selectErr
}

// SelectLocation picks an explicit location, e.g. one resolved out of band.
func (o *Orchestrator) SelectLocation(ctx context.Context, loc weather.Location) (State, error) {
	if strings.TrimSpace(loc.Name) == "" {
		return State{}, apperrors.Wrap(apperrors.CodeInvalidInput, "location name cannot be empty", nil)
	}
	return o.exec(ctx, func() { o.onLocationSelected(loc) })
}

// ToggleUnits flips between Celsius and Fahrenheit. No I/O happens.
func (o *Orchestrator) ToggleUnits(ctx context.Context) (State, error) {
	return o.exec(ctx, func() { o.state = toggleUnits(o.state) })
}

// Retry re-issues the last forecast request when none is in flight.
func (o *Orchestrator) Retry(ctx context.Context) (State, error) {
	return o.exec(ctx, func() {
		next, seq, ok := retryForecast(o.state)
		if !ok {
			return
		}
		o.state = next
		o.logger.Info("retrying forecast", "city", next.City)
		o.fetchForecast(seq, next.City)
	})
}

// exec runs fn on the actor goroutine and returns the state it left behind.
func (o *Orchestrator) exec(ctx context.Context, fn func()) (State, error) {
	reply := make(chan State, 1)
	msg := func() {
		fn()
		reply <- o.state
	}
	select {
	case o.mailbox <- msg:
	case <-o.done:
		return State{}, errStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-o.done:
		return State{}, errStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// post delivers fn to the actor unless it has stopped.
func (o *Orchestrator) post(fn func()) bool {
	select {
	case o.mailbox <- fn:
		return true
	case <-o.done:
		return false
	}
}

// spawn runs blocking I/O off the actor goroutine.
func (o *Orchestrator) spawn(fn func(ctx context.Context)) {
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		fn(o.ioCtx)
	}()
}

// loadInitial reads the persisted city and fetches its forecast, unless a
// location was selected while the read was still running.
func (o *Orchestrator) loadInitial() {
	issuedAt := o.state.forecastSeq
	o.spawn(func(ctx context.Context) {
		city := o.cfg.DefaultCity
		if res := o.prefs.Get(ctx, o.cfg.CityKey); res.Found && res.Value != "" {
			city = res.Value
		}
		o.post(func() {
			if o.state.forecastSeq != issuedAt {
				o.logger.Debug("skipping startup forecast, a location was already selected", "city", city)
				return
			}
			next, seq := beginForecast(o.state, city, false)
			o.state = next
			o.logger.Info("loading initial forecast", "city", city)
			o.fetchForecast(seq, city)
		})
	})
}

func (o *Orchestrator) onQueryEdited(query string) {
	next, schedule := editQuery(o.state, query, o.cfg.MinQueryLength)
	o.state = next
	if !schedule {
		o.debounce.cancel()
		return
	}
	o.debounce.arm(func(gen uint64) {
		o.post(func() { o.onDebounceFired(gen) })
	})
}

func (o *Orchestrator) onDebounceFired(gen uint64) {
	if !o.debounce.claim(gen) {
		return
	}
	next, seq, query := issueLookup(o.state)
	o.state = next
	o.spawn(func(ctx context.Context) {
		locations, err := o.client.FetchLocations(ctx, query)
		o.post(func() { o.applyLookup(seq, query, locations, err) })
	})
}

func (o *Orchestrator) applyLookup(seq uint64, query string, locations []weather.Location, err error) {
	if err != nil {
		o.logger.Warn("location lookup failed", "query", query, "error", err)
		return
	}
	next, applied := lookupSucceeded(o.state, seq, locations)
	if !applied {
		o.logger.Debug("dropping stale location lookup", "query", query, "seq", seq)
		return
	}
	o.state = next
}

func (o *Orchestrator) onLocationSelected(loc weather.Location) {
	o.debounce.cancel()
	next, seq := selectLocation(o.state, loc)
	o.state = next
	o.logger.Info("location selected", "city", loc.Name, "country", loc.Country)
	o.fetchForecast(seq, loc.Name)
}

func (o *Orchestrator) fetchForecast(seq uint64, city string) {
	days := o.cfg.ForecastDays
	o.spawn(func(ctx context.Context) {
		snap, err := o.client.FetchForecast(ctx, city, days)
		o.post(func() { o.applyForecast(seq, city, snap, err) })
	})
}

func (o *Orchestrator) applyForecast(seq uint64, city string, snap weather.Snapshot, err error) {
	if err != nil {
		next, applied := forecastFailed(o.state, seq, "Could not load the forecast for "+city+".")
		if applied {
			o.state = next
			o.logger.Error("forecast fetch failed", "city", city, "error", err)
		}
		return
	}
	next, applied := forecastSucceeded(o.state, seq, snap)
	if !applied {
		o.logger.Debug("dropping stale forecast", "city", city, "seq", seq)
		return
	}
	o.state = next
	if next.persistCity {
		seq := o.persistSeq.Add(1)
		o.spawn(func(ctx context.Context) { o.persist(ctx, seq, city) })
	}
}

// persist writes city unless a newer selection has queued its own write.
func (o *Orchestrator) persist(ctx context.Context, seq uint64, city string) {
	o.persistMu.Lock()
	defer o.persistMu.Unlock()
	if seq != o.persistSeq.Load() {
		o.logger.Debug("skipping superseded city write", "city", city)
		return
	}
	// failures are already logged by the adapter; the screen stays correct
	_ = o.prefs.Put(ctx, o.cfg.CityKey, city)
}
