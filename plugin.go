package cacheplugin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goforj/cacheplugin/cachecore"
)

type handleState int

const (
	stateUninitialized handleState = iota
	stateReady
	stateClosed
)

func (s handleState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Handle is the plugin's runtime state. It exclusively owns its loader,
// resolver and backend. Resolver and backend are either both nil or both live.
type Handle struct {
	mu       sync.Mutex
	id       string
	cfg      Config
	loader   cachecore.Loader
	location cachecore.Location
	resolver cachecore.Resolver
	backend  cachecore.Backend
	state    handleState
	logger   logrus.FieldLogger
	observer Observer
}

// New returns an uninitialized handle that will load its modules from loader.
// A nil loader gets NewDefaultModules for the effective configuration.
// Options apply in order, so WithConfig should come before narrower options.
// @group Lifecycle
func New(loader cachecore.Loader, opts ...Option) *Handle {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	cfg := s.cfg.withDefaults()
	if loader == nil {
		loader = NewDefaultModules(cfg)
	}
	logger := s.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := uuid.NewString()
	return &Handle{
		id:       id,
		cfg:      cfg,
		loader:   loader,
		logger:   logger.WithFields(logrus.Fields{"plugin": pluginName, "handle": id}),
		observer: s.observer,
	}
}

// Open creates a handle and opens it. On failure the returned error is an
// *InitError and nothing acquired during the attempt is left held.
// @group Lifecycle
//
// Example: open with the default modules
//
//	ctx := context.Background()
//	h, err := cacheplugin.Open(ctx, nil, cacheplugin.WithStorage("memory"))
//	if err != nil {
//		return err
//	}
//	defer h.Close(ctx)
func Open(ctx context.Context, loader cachecore.Loader, opts ...Option) (*Handle, error) {
	h := New(loader, opts...)
	if err := h.Open(ctx, nil); err != nil {
		return nil, err
	}
	return h, nil
}

// Open resolves the cache location and opens the backend there. Failures are
// also written onto errorKey when it is non-nil. A handle can be opened once;
// retry with a fresh handle.
func (h *Handle) Open(ctx context.Context, errorKey *Key) (err error) {
	start := time.Now()
	var driver cachecore.Driver
	defer func() {
		SetError(errorKey, err)
		h.observe(ctx, "open", h.cfg.LocationName, statusFor(err, StatusSuccess), err, start, driver)
	}()
	h.mu.Lock()
	defer h.mu.Unlock()
	defer func() { driver = h.driverLocked() }()

	switch h.state {
	case stateReady:
		return ErrAlreadyOpen
	case stateClosed:
		return ErrClosed
	}

	h.location = cachecore.Location{Name: h.cfg.LocationName}
	if err := h.resolveLocation(ctx); err != nil {
		h.state = stateClosed
		h.logger.WithError(err).WithField("resolver", h.cfg.ResolverName).Warn("cache resolver unavailable")
		return err
	}
	if err := h.openBackend(ctx); err != nil {
		h.state = stateClosed
		h.logger.WithError(err).WithField("storage", h.cfg.StorageName).Warn("cache backend unavailable")
		return err
	}
	h.state = stateReady
	h.logger.WithFields(logrus.Fields{
		"location": h.location.Name,
		"path":     h.location.Path,
		"storage":  h.cfg.StorageName,
	}).Debug("cache open")
	return nil
}

func (h *Handle) resolveLocation(ctx context.Context) error {
	resolver, err := h.loader.LoadResolver(ctx, h.cfg.ResolverName)
	if err == nil {
		err = resolver.Resolve(ctx, &h.location)
		if err == nil && !h.location.Resolved() {
			err = errors.New("resolver returned an empty path")
		}
		if err != nil {
			_ = resolver.Close()
		}
	}
	if err != nil {
		_ = h.loader.Close()
		h.location = cachecore.Location{}
		return &InitError{Kind: ResolverUnavailable, Module: h.cfg.ResolverName, Err: err}
	}
	h.resolver = resolver
	return nil
}

func (h *Handle) openBackend(ctx context.Context) error {
	backend, err := h.loader.LoadBackend(ctx, h.cfg.StorageName, h.location)
	if err == nil {
		var wrapped cachecore.Backend
		if wrapped, err = wrapBackend(backend, h.cfg); err != nil {
			_ = backend.Close()
		} else {
			backend = wrapped
		}
	}
	if err != nil {
		_ = h.resolver.Close()
		h.resolver = nil
		_ = h.loader.Close()
		h.location = cachecore.Location{}
		return &InitError{Kind: BackendUnavailable, Module: h.cfg.StorageName, Err: err}
	}
	h.backend = backend
	return nil
}

// Close releases backend, resolver, loader and location, in that order. It is
// a no-op on handles that are not open. Release errors are joined, and the
// handle is closed regardless.
func (h *Handle) Close(ctx context.Context) error {
	start := time.Now()
	driver, closed, err := h.release()
	if closed {
		h.observe(ctx, "close", h.cfg.LocationName, statusFor(err, StatusSuccess), err, start, driver)
	}
	return err
}

func (h *Handle) release() (cachecore.Driver, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateReady {
		return "", false, nil
	}

	driver := h.backend.Driver()
	var errs []error
	if err := h.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	h.backend = nil
	if err := h.resolver.Close(); err != nil {
		errs = append(errs, err)
	}
	h.resolver = nil
	if err := h.loader.Close(); err != nil {
		errs = append(errs, err)
	}
	h.location = cachecore.Location{}
	h.state = stateClosed

	h.logger.WithField("storage", driver).Debug("cache close")
	return driver, true, errors.Join(errs...)
}

// ID identifies the handle in logs.
func (h *Handle) ID() string { return h.id }

// Config returns the effective configuration.
func (h *Handle) Config() Config { return h.cfg }

// Location returns the resolved location while the handle is open.
func (h *Handle) Location() (cachecore.Location, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location, h.state == stateReady
}

// Ready reports whether the handle is open.
func (h *Handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateReady
}

// State names the lifecycle state: uninitialized, ready or closed.
func (h *Handle) State() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.String()
}

// Driver reports the open backend's driver, or "" when not open.
func (h *Handle) Driver() Driver {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.driverLocked()
}

func (h *Handle) driverLocked() cachecore.Driver {
	if h.backend == nil {
		return ""
	}
	return h.backend.Driver()
}

// observe runs after h.mu is released, so observers may call back into the
// handle.
func (h *Handle) observe(ctx context.Context, op, key string, status Status, err error, start time.Time, driver cachecore.Driver) {
	if h == nil || h.observer == nil {
		return
	}
	h.observer.OnPluginOp(ctx, op, key, status, err, time.Since(start), driver)
}

func statusFor(err error, ok Status) Status {
	if err != nil {
		return StatusError
	}
	return ok
}
