package weather

import "context"

// Client resolves locations and forecasts from the upstream provider.
type Client interface {
	FetchLocations(ctx context.Context, cityName string) ([]Location, error)
	FetchForecast(ctx context.Context, cityName string, days int) (Snapshot, error)
}
