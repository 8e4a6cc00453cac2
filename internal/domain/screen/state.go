package screen

import (
	"strings"
	"unicode/utf8"

	"github.com/yanqian/weather-screen/internal/domain/weather"
)

func initialState() State {
	return State{
		Phase:      PhaseInitializing,
		Loading:    true,
		UseCelsius: true,
	}
}

// beginForecast records a new forecast request. Any older request still in
// flight becomes stale.
func beginForecast(s State, city string, persist bool) (State, uint64) {
	s.forecastSeq++
	s.Loading = true
	s.City = city
	s.Error = ""
	s.persistCity = persist
	return s, s.forecastSeq
}

// forecastSucceeded applies a forecast response. The returned bool is false
// when the response belongs to a superseded request.
func forecastSucceeded(s State, seq uint64, snap weather.Snapshot) (State, bool) {
	if seq != s.forecastSeq || !s.Loading {
		return s, false
	}
	days := make([]weather.DayForecast, len(snap.Forecast))
	copy(days, snap.Forecast)
	snap.Forecast = days

	s.Snapshot = &snap
	s.Loading = false
	s.Error = ""
	if s.Phase != PhaseSearching {
		s.Phase = PhaseLoaded
	}
	return s, true
}

func forecastFailed(s State, seq uint64, message string) (State, bool) {
	if seq != s.forecastSeq || !s.Loading {
		return s, false
	}
	s.Loading = false
	s.Phase = PhaseFailed
	s.Error = message
	return s, true
}

// editQuery stores the new query and reports whether a lookup should be
// scheduled. Short queries invalidate any lookup already in flight.
func editQuery(s State, query string, minLength int) (State, bool) {
	s.Query = query
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minLength {
		s.lookupSeq++
		if trimmed == "" {
			s.Candidates = nil
		}
		if s.Phase == PhaseSearching {
			s.Phase = PhaseLoaded
		}
		return s, false
	}
	if s.Phase == PhaseLoaded {
		s.Phase = PhaseSearching
	}
	return s, true
}

// issueLookup tags a lookup for the current query.
func issueLookup(s State) (State, uint64, string) {
	s.lookupSeq++
	return s, s.lookupSeq, strings.TrimSpace(s.Query)
}

// lookupSucceeded replaces the candidate list unless the response is stale.
func lookupSucceeded(s State, seq uint64, locations []weather.Location) (State, bool) {
	if seq != s.lookupSeq {
		return s, false
	}
	candidates := make([]weather.Location, len(locations))
	copy(candidates, locations)
	s.Candidates = candidates
	return s, true
}

func candidateAt(s State, index int) (weather.Location, bool) {
	if index < 0 || index >= len(s.Candidates) {
		return weather.Location{}, false
	}
	return s.Candidates[index], true
}

// selectLocation clears the candidates and starts the forecast for loc.
func selectLocation(s State, loc weather.Location) (State, uint64) {
	s.Candidates = nil
	s.lookupSeq++
	if s.Phase == PhaseSearching {
		s.Phase = PhaseLoaded
	}
	return beginForecast(s, loc.Name, true)
}

func toggleUnits(s State) State {
	s.UseCelsius = !s.UseCelsius
	return s
}

// retryForecast re-issues the last forecast request, keeping whether a
// success should be persisted. It refuses while a request is in flight.
func retryForecast(s State) (State, uint64, bool) {
	if s.Loading || s.City == "" {
		return s, 0, false
	}
	next, seq := beginForecast(s, s.City, s.persistCity)
	return next, seq, true
}
