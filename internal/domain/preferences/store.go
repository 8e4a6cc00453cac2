package preferences

import "context"

// Store defines the persistence contract for durable key-value preferences.
// Get reports found=false when the key was never set.
type Store interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
}

// KeyCity is the default slot holding the last city the user selected.
const KeyCity = "city"
