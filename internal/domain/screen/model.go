package screen

import (
	"time"

	"github.com/yanqian/weather-screen/internal/domain/preferences"
	"github.com/yanqian/weather-screen/internal/domain/weather"
)

// Phase is the coarse screen state. Loading overlays every phase.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseLoaded       Phase = "loaded"
	PhaseSearching    Phase = "searching"
	PhaseFailed       Phase = "failed"
)

// Config wires runtime knobs for the screen.
type Config struct {
	DefaultCity    string
	ForecastDays   int
	MinQueryLength int
	Debounce       time.Duration
	CityKey        string
}

// DefaultConfig mirrors the shipped screen behaviour.
func DefaultConfig() Config {
	return Config{
		DefaultCity:    "Mumbai",
		ForecastDays:   7,
		MinQueryLength: 3,
		Debounce:       600 * time.Millisecond,
		CityKey:        preferences.KeyCity,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultCity == "" {
		c.DefaultCity = def.DefaultCity
	}
	if c.ForecastDays < 1 {
		c.ForecastDays = def.ForecastDays
	}
	if c.MinQueryLength < 1 {
		c.MinQueryLength = def.MinQueryLength
	}
	if c.Debounce <= 0 {
		c.Debounce = def.Debounce
	}
	if c.CityKey == "" {
		c.CityKey = def.CityKey
	}
	return c
}

// State is an immutable snapshot of everything the screen shows. Transitions
// return a new value and never mutate slices reachable from an older one.
type State struct {
	Phase      Phase
	Query      string
	Candidates []weather.Location
	Loading    bool
	UseCelsius bool
	Snapshot   *weather.Snapshot
	// City is the target of the latest forecast request; Retry reuses it.
	City  string
	Error string

	lookupSeq   uint64
	forecastSeq uint64
	persistCity bool
}

// View is the render model handed to clients.
type View struct {
	Status     string          `json:"status"`
	Phase      Phase           `json:"phase"`
	Message    string          `json:"message,omitempty"`
	Query      string          `json:"query"`
	Unit       string          `json:"unit"`
	Candidates []CandidateView `json:"candidates"`
	Current    *CurrentView    `json:"current,omitempty"`
	Daily      []DayView       `json:"daily"`
	CanRetry   bool            `json:"canRetry"`
}

// CandidateView is one row of the search dropdown.
type CandidateView struct {
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// CurrentView is the headline block.
type CurrentView struct {
	Location    string `json:"location"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	Icon        string `json:"icon"`
	Wind        string `json:"wind"`
	Humidity    string `json:"humidity"`
	Sunrise     string `json:"sunrise"`
}

// DayView is one card of the daily strip.
type DayView struct {
	Date        string `json:"date"`
	Day         string `json:"day"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	Icon        string `json:"icon"`
}
