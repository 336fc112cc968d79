package cachefake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

// Op identifies a module call for assertions.
type Op string

const (
	OpLoadResolver  Op = "load_resolver"
	OpLoadBackend   Op = "load_backend"
	OpResolve       Op = "resolve"
	OpGet           Op = "get"
	OpSet           Op = "set"
	OpDelete        Op = "delete"
	OpFlush         Op = "flush"
	OpCloseBackend  Op = "close_backend"
	OpCloseResolver Op = "close_resolver"
	OpCloseLoader   Op = "close_loader"
)

// DefaultPath is the directory the fake resolver assigns when Path is empty.
const DefaultPath = "/fake/cache"

// Loader is a recording cachecore.Loader. Its resolver and backends record
// every call into the loader's trace so tests can assert acquisition and
// release order. Set the exported fields before handing the loader out.
type Loader struct {
	// ResolverErr fails LoadResolver; ResolveErr fails Resolve.
	ResolverErr error
	ResolveErr  error
	// BackendErr fails LoadBackend.
	BackendErr error
	// GetErr, SetErr and DeleteErr fail the matching backend calls.
	GetErr    error
	SetErr    error
	DeleteErr error
	// CloseErr is returned by every Close.
	CloseErr error
	// Path is assigned to resolved locations.
	Path string
	// Driver is reported by opened backends. Defaults to memory.
	Driver cachecore.Driver

	mu       sync.Mutex
	trace    []Op
	counts   map[Op]map[string]int
	backends []*Backend
}

var _ cachecore.Loader = (*Loader)(nil)

// New returns a loader whose modules always succeed.
func New() *Loader {
	return &Loader{counts: make(map[Op]map[string]int)}
}

// LoadResolver implements cachecore.Loader.
func (l *Loader) LoadResolver(_ context.Context, name string) (cachecore.Resolver, error) {
	l.record(OpLoadResolver, name)
	if l.ResolverErr != nil {
		return nil, l.ResolverErr
	}
	return &Resolver{loader: l}, nil
}

// LoadBackend implements cachecore.Loader.
func (l *Loader) LoadBackend(_ context.Context, name string, loc cachecore.Location) (cachecore.Backend, error) {
	l.record(OpLoadBackend, name)
	if l.BackendErr != nil {
		return nil, l.BackendErr
	}
	driver := l.Driver
	if driver == "" {
		driver = cachecore.DriverMemory
	}
	b := &Backend{loader: l, driver: driver, loc: loc, items: make(map[string]entry)}
	l.mu.Lock()
	l.backends = append(l.backends, b)
	l.mu.Unlock()
	return b, nil
}

// Close implements cachecore.Loader.
func (l *Loader) Close() error {
	l.record(OpCloseLoader, "")
	return l.CloseErr
}

// Backend returns the most recently opened backend, or nil.
func (l *Loader) Backend() *Backend {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.backends) == 0 {
		return nil
	}
	return l.backends[len(l.backends)-1]
}

// Trace returns every recorded op in call order.
func (l *Loader) Trace() []Op {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Op, len(l.trace))
	copy(out, l.trace)
	return out
}

// Reset clears the trace and counts.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trace = nil
	l.counts = make(map[Op]map[string]int)
}

// Count returns calls for op+key.
func (l *Loader) Count(op Op, key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[op][key]
}

// Total returns total calls for an op across keys.
func (l *Loader) Total(op Op) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int
	for _, v := range l.counts[op] {
		sum += v
	}
	return sum
}

// AssertCalled verifies key was touched by op the expected number of times.
func (l *Loader) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := l.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures op was never recorded for any key.
func (l *Loader) AssertNotCalled(t *testing.T, op Op) {
	t.Helper()
	if got := l.Total(op); got != 0 {
		t.Fatalf("expected %s not called, got %d", op, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (l *Loader) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := l.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

func (l *Loader) record(op Op, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = make(map[Op]map[string]int)
	}
	if l.counts[op] == nil {
		l.counts[op] = make(map[string]int)
	}
	l.counts[op][key]++
	l.trace = append(l.trace, op)
}

// Resolver assigns the loader's Path to every location.
type Resolver struct {
	loader *Loader
}

// Resolve implements cachecore.Resolver.
func (r *Resolver) Resolve(_ context.Context, loc *cachecore.Location) error {
	r.loader.record(OpResolve, loc.Name)
	if r.loader.ResolveErr != nil {
		return r.loader.ResolveErr
	}
	loc.Path = r.loader.Path
	if loc.Path == "" {
		loc.Path = DefaultPath
	}
	return nil
}

// Close implements cachecore.Resolver.
func (r *Resolver) Close() error {
	r.loader.record(OpCloseResolver, "")
	return r.loader.CloseErr
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Backend is an in-memory cachecore.Backend that records into its loader.
type Backend struct {
	loader *Loader
	driver cachecore.Driver
	loc    cachecore.Location

	mu     sync.Mutex
	items  map[string]entry
	closed bool
}

// Location returns the location the backend was opened at.
func (b *Backend) Location() cachecore.Location { return b.loc }

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Raw returns the stored bytes for key without recording a call.
func (b *Backend) Raw(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.items[key]
	return e.value, ok
}

// Driver implements cachecore.Backend.
func (b *Backend) Driver() cachecore.Driver { return b.driver }

// Get implements cachecore.Backend.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.loader.record(OpGet, key)
	if b.loader.GetErr != nil {
		return nil, false, b.loader.GetErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.items[key]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		delete(b.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set implements cachecore.Backend.
func (b *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.loader.record(OpSet, key)
	if b.loader.SetErr != nil {
		return b.loader.SetErr
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.items[key] = e
	b.mu.Unlock()
	return nil
}

// Delete implements cachecore.Backend.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.loader.record(OpDelete, key)
	if b.loader.DeleteErr != nil {
		return b.loader.DeleteErr
	}
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}

// Flush implements cachecore.Backend.
func (b *Backend) Flush(context.Context) error {
	b.loader.record(OpFlush, "")
	b.mu.Lock()
	b.items = make(map[string]entry)
	b.mu.Unlock()
	return nil
}

// Close implements cachecore.Backend.
func (b *Backend) Close() error {
	b.loader.record(OpCloseBackend, "")
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.loader.CloseErr
}
