package cacheplugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goforj/cacheplugin/cachecore"
)

var errNilKey = errors.New("cacheplugin: nil parent key or key set")

// Get answers a host read below parentKey. The contract root is answered from
// the static descriptor in any state, even on a nil handle; every other name is
// looked up in the backend.
// @group Handlers
func (h *Handle) Get(ctx context.Context, parentKey *Key, returned *KeySet) (Status, error) {
	if parentKey == nil || returned == nil {
		return StatusError, errNilKey
	}
	return h.Serve(ctx, RequestFor(parentKey.Name()), returned)
}

// Serve dispatches a typed request.
func (h *Handle) Serve(ctx context.Context, req Request, returned *KeySet) (Status, error) {
	if returned == nil {
		return StatusError, errNilKey
	}
	switch r := req.(type) {
	case Introspect:
		returned.AppendSet(Contract())
		return StatusSuccess, nil
	case DataOp:
		if h == nil {
			return StatusError, ErrNotOpen
		}
		return h.lookup(ctx, r.Key, returned)
	default:
		return StatusError, fmt.Errorf("cacheplugin: unsupported request %T", req)
	}
}

// lookup reports StatusSuccess only when the cache contributed keys that were
// not already in returned.
func (h *Handle) lookup(ctx context.Context, name string, returned *KeySet) (status Status, err error) {
	start := time.Now()
	var driver cachecore.Driver
	defer func() { h.observe(ctx, "get", name, status, err, start, driver) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	driver = h.driverLocked()

	if h.state != stateReady {
		return StatusError, ErrNotOpen
	}
	h.logger.WithFields(logrus.Fields{
		"location": h.location.Name,
		"path":     h.location.Path,
		"parent":   name,
	}).Debug("cache get")

	body, ok, err := h.backend.Get(ctx, name)
	if err != nil {
		return StatusError, fmt.Errorf("cache get %q: %w", name, err)
	}
	if !ok {
		return StatusNoUpdate, nil
	}
	cached := &KeySet{}
	if err := json.Unmarshal(body, cached); err != nil {
		return StatusError, fmt.Errorf("cache get %q: %w", name, err)
	}
	if returned.Contains(cached) {
		return StatusNoUpdate, nil
	}
	returned.AppendSet(cached)
	return StatusSuccess, nil
}

// Set caches the keys of returned at or below parentKey. An identical cached
// payload is not rewritten and reports StatusNoUpdate, as does the null backend.
// Skipping the write keeps the expiry of the first write: a key set re-set with
// unchanged content still expires cfg.TTL after it was last changed.
// @group Handlers
func (h *Handle) Set(ctx context.Context, parentKey *Key, returned *KeySet) (status Status, err error) {
	if parentKey == nil || returned == nil {
		return StatusError, errNilKey
	}
	name := parentKey.Name()
	start := time.Now()
	var driver cachecore.Driver
	defer func() { h.observe(ctx, "set", name, status, err, start, driver) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	driver = h.driverLocked()

	if h.state != stateReady {
		return StatusError, ErrNotOpen
	}
	if h.backend.Driver() == DriverNull {
		return StatusNoUpdate, nil
	}
	payload, err := json.Marshal(returned.Below(name))
	if err != nil {
		return StatusError, fmt.Errorf("cache set %q: %w", name, err)
	}
	if existing, ok, getErr := h.backend.Get(ctx, name); getErr == nil && ok && bytes.Equal(existing, payload) {
		return StatusNoUpdate, nil
	}
	if err := h.backend.Set(ctx, name, payload, h.cfg.TTL); err != nil {
		return StatusError, fmt.Errorf("cache set %q: %w", name, err)
	}
	return StatusSuccess, nil
}

// Error drops the cached entry for parentKey after a failed commit elsewhere in
// the pipeline, so a rolled-back write is never served.
// @group Handlers
func (h *Handle) Error(ctx context.Context, parentKey *Key, _ *KeySet) (status Status, err error) {
	if parentKey == nil {
		return StatusError, errNilKey
	}
	name := parentKey.Name()
	start := time.Now()
	var driver cachecore.Driver
	defer func() { h.observe(ctx, "error", name, status, err, start, driver) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	driver = h.driverLocked()

	if h.state != stateReady {
		return StatusSuccess, nil
	}
	if err := h.backend.Delete(ctx, name); err != nil {
		return StatusError, fmt.Errorf("cache rollback %q: %w", name, err)
	}
	return StatusSuccess, nil
}

// Flush drops every entry cached at the resolved location. Entries other
// locations keep in a shared backend are left alone.
// @group Handlers
func (h *Handle) Flush(ctx context.Context) (status Status, err error) {
	start := time.Now()
	name := h.cfg.LocationName
	var driver cachecore.Driver
	defer func() { h.observe(ctx, "flush", name, status, err, start, driver) }()
	h.mu.Lock()
	defer h.mu.Unlock()
	driver = h.driverLocked()

	if h.state != stateReady {
		return StatusError, ErrNotOpen
	}
	h.logger.WithFields(logrus.Fields{
		"location": h.location.Name,
		"path":     h.location.Path,
	}).Debug("cache flush")
	if err := h.backend.Flush(ctx); err != nil {
		return StatusError, fmt.Errorf("cache flush %q: %w", h.location.Path, err)
	}
	return StatusSuccess, nil
}
