package weather

import "strings"

// Location is a search candidate returned by the lookup endpoint.
type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Region  string  `json:"region,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// Label renders the location the way the candidate list shows it.
func (l Location) Label() string {
	name := strings.TrimSpace(l.Name)
	country := strings.TrimSpace(l.Country)
	switch {
	case country == "":
		return name
	case name == "":
		return country
	default:
		return name + ", " + country
	}
}

// Current holds the conditions observed now.
type Current struct {
	TempC     float64 `json:"tempC"`
	TempF     float64 `json:"tempF"`
	Condition string  `json:"condition"`
	WindKPH   float64 `json:"windKph"`
	Humidity  int     `json:"humidity"`
}

// Temperature picks the reading for the requested unit.
func (c Current) Temperature(celsius bool) float64 {
	if celsius {
		return c.TempC
	}
	return c.TempF
}

// DayForecast is one entry of the daily strip.
type DayForecast struct {
	Date      string  `json:"date"`
	AvgTempC  float64 `json:"avgTempC"`
	AvgTempF  float64 `json:"avgTempF"`
	Condition string  `json:"condition"`
	Sunrise   string  `json:"sunrise"`
}

// Temperature picks the average for the requested unit.
func (d DayForecast) Temperature(celsius bool) float64 {
	if celsius {
		return d.AvgTempC
	}
	return d.AvgTempF
}

// Snapshot is a complete forecast response. It always replaces the previous
// one wholesale.
type Snapshot struct {
	Location Location      `json:"location"`
	Current  Current       `json:"current"`
	Forecast []DayForecast `json:"forecast"`
}
