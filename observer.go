package cacheplugin

import (
	"context"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

// Observer receives events for plugin operations.
// It is called after each lifecycle call or handler completes.
type Observer interface {
	OnPluginOp(ctx context.Context, op string, key string, status Status, err error, dur time.Duration, driver cachecore.Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, key string, status Status, err error, dur time.Duration, driver cachecore.Driver)

// OnPluginOp implements Observer.
func (f ObserverFunc) OnPluginOp(ctx context.Context, op string, key string, status Status, err error, dur time.Duration, driver cachecore.Driver) {
	if f == nil {
		return
	}
	f(ctx, op, key, status, err, dur, driver)
}
