package cacheplugin

import (
	"context"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

// nullBackend accepts writes and never hits. It reproduces a plugin whose
// get/set handlers report no update.
type nullBackend struct{}

func newNullBackend() cachecore.Backend { return nullBackend{} }

func (nullBackend) Driver() cachecore.Driver { return DriverNull }

func (nullBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (nullBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (nullBackend) Delete(context.Context, string) error { return nil }

func (nullBackend) Flush(context.Context) error { return nil }

func (nullBackend) Close() error { return nil }
