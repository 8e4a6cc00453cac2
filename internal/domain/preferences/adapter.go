package preferences

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/weather-screen/pkg/errors"
)

// Result reports the outcome of a preference read or write. A failed read is
// always reported as not found, so callers that ignore Err see "absent".
type Result struct {
	Value string
	Found bool
	Err   error
}

// OK reports whether the operation reached the backing store successfully.
func (r Result) OK() bool {
	return r.Err == nil
}

// Adapter logs storage failures instead of propagating them, while still
// handing the reason back to callers that want it.
type Adapter struct {
	store  Store
	logger *slog.Logger
}

// NewAdapter wraps a Store.
func NewAdapter(store Store, logger *slog.Logger) *Adapter {
	return &Adapter{store: store, logger: logger.With("component", "preferences.adapter")}
}

// Put stores value under key. Last write wins.
func (a *Adapter) Put(ctx context.Context, key, value string) Result {
	key = strings.TrimSpace(key)
	if key == "" {
		err := apperrors.Wrap(apperrors.CodeInvalidInput, "preference key cannot be empty", nil)
		a.logger.Error("error storing value", "error", err)
		return Result{Err: err}
	}
	if err := a.store.Put(ctx, key, value); err != nil {
		wrapped := apperrors.Wrap(apperrors.CodeStorage, "store preference", err)
		a.logger.Error("error storing value", "key", key, "error", err)
		return Result{Err: wrapped}
	}
	return Result{Value: value, Found: true}
}

// Get returns the value stored under key.
func (a *Adapter) Get(ctx context.Context, key string) Result {
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{}
	}
	value, found, err := a.store.Get(ctx, key)
	if err != nil {
		a.logger.Error("error retrieving value", "key", key, "error", err)
		return Result{Err: apperrors.Wrap(apperrors.CodeStorage, "load preference", err)}
	}
	if !found {
		return Result{}
	}
	return Result{Value: value, Found: true}
}
