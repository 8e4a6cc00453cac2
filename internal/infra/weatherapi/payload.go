package weatherapi

import "github.com/yanqian/weather-screen/internal/domain/weather"

type apiLocation struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l apiLocation) toDomain() weather.Location {
	return weather.Location{
		Name:    l.Name,
		Country: l.Country,
		Region:  l.Region,
		Lat:     l.Lat,
		Lon:     l.Lon,
	}
}

type apiCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

type apiForecast struct {
	Location apiLocation `json:"location"`
	Current  struct {
		TempC     float64      `json:"temp_c"`
		TempF     float64      `json:"temp_f"`
		Condition apiCondition `json:"condition"`
		WindKPH   float64      `json:"wind_kph"`
		Humidity  int          `json:"humidity"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []apiForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type apiForecastDay struct {
	Date string `json:"date"`
	Day  struct {
		AvgTempC  float64      `json:"avgtemp_c"`
		AvgTempF  float64      `json:"avgtemp_f"`
		Condition apiCondition `json:"condition"`
	} `json:"day"`
	Astro struct {
		Sunrise string `json:"sunrise"`
	} `json:"astro"`
}

func (f apiForecast) toDomain() weather.Snapshot {
	days := make([]weather.DayForecast, 0, len(f.Forecast.ForecastDay))
	for _, d := range f.Forecast.ForecastDay {
		days = append(days, weather.DayForecast{
			Date:      d.Date,
			AvgTempC:  d.Day.AvgTempC,
			AvgTempF:  d.Day.AvgTempF,
			Condition: d.Day.Condition.Text,
			Sunrise:   d.Astro.Sunrise,
		})
	}
	return weather.Snapshot{
		Location: f.Location.toDomain(),
		Current: weather.Current{
			TempC:     f.Current.TempC,
			TempF:     f.Current.TempF,
			Condition: f.Current.Condition.Text,
			WindKPH:   f.Current.WindKPH,
			Humidity:  f.Current.Humidity,
		},
		Forecast: days,
	}
}

var _ weather.Client = (*Client)(nil)
