package screen

import (
	"strconv"
	"strings"
	"time"
)

const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusError   = "error"
)

// Render turns a state into the view model. It performs no I/O and never
// mutates s.
func Render(s State) View {
	view := View{
		Phase:      s.Phase,
		Query:      s.Query,
		Unit:       unitLabel(s.UseCelsius),
		Candidates: make([]CandidateView, 0, len(s.Candidates)),
		Daily:      []DayView{},
	}

	switch {
	case s.Loading:
		view.Status = StatusLoading
		view.Message = "Loading..."
	case s.Phase == PhaseFailed:
		view.Status = StatusError
		view.Message = s.Error
		view.CanRetry = s.City != ""
	default:
		view.Status = StatusReady
	}

	for i, loc := range s.Candidates {
		view.Candidates = append(view.Candidates, CandidateView{
			Index:   i,
			Label:   loc.Label(),
			Name:    loc.Name,
			Country: loc.Country,
		})
	}

	if s.Snapshot == nil {
		return view
	}

	snap := s.Snapshot
	current := &CurrentView{
		Location:    snap.Location.Label(),
		Name:        snap.Location.Name,
		Country:     snap.Location.Country,
		Temperature: formatTemperature(snap.Current.Temperature(s.UseCelsius), s.UseCelsius),
		Condition:   snap.Current.Condition,
		Icon:        IconFor(snap.Current.Condition),
		Wind:        formatNumber(snap.Current.WindKPH) + " kmph",
		Humidity:    strconv.Itoa(snap.Current.Humidity) + "%",
	}
	if len(snap.Forecast) > 0 {
		current.Sunrise = snap.Forecast[0].Sunrise
	}
	view.Current = current

	view.Daily = make([]DayView, 0, len(snap.Forecast))
	for _, day := range snap.Forecast {
		view.Daily = append(view.Daily, DayView{
			Date:        day.Date,
			Day:         weekdayName(day.Date),
			Temperature: formatTemperature(day.Temperature(s.UseCelsius), s.UseCelsius),
			Condition:   day.Condition,
			Icon:        IconFor(day.Condition),
		})
	}
	return view
}

func unitLabel(celsius bool) string {
	if celsius {
		return "C"
	}
	return "F"
}

func formatTemperature(value float64, celsius bool) string {
	return formatNumber(value) + "°" + unitLabel(celsius)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func weekdayName(date string) string {
	ts, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return date
	}
	return ts.Weekday().String()[:3]
}

var conditionIcons = map[string]string{
	"partly cloudy":                       "partlycloudy",
	"moderate rain":                       "moderaterain",
	"patchy rain possible":                "moderaterain",
	"patchy rain nearby":                  "moderaterain",
	"light rain":                          "moderaterain",
	"light rain shower":                   "moderaterain",
	"moderate rain at times":              "moderaterain",
	"sunny":                               "sun",
	"clear":                               "sun",
	"overcast":                            "cloud",
	"cloudy":                              "cloud",
	"heavy rain":                          "heavyrain",
	"heavy rain at times":                 "heavyrain",
	"moderate or heavy freezing rain":     "heavyrain",
	"moderate or heavy rain shower":       "heavyrain",
	"moderate or heavy rain with thunder": "heavyrain",
	"mist":                                "mist",
	"fog":                                 "mist",
}

// IconFor maps an upstream condition text to an icon key.
func IconFor(condition string) string {
	if icon, ok := conditionIcons[strings.ToLower(strings.TrimSpace(condition))]; ok {
		return icon
	}
	return "other"
}
