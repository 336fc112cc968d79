package cacheplugin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goforj/cacheplugin/cachecore"
)

// Modules is a name-keyed registry of resolver and backend factories. It
// implements cachecore.Loader; once closed it refuses further loads.
type Modules struct {
	mu        sync.RWMutex
	resolvers map[string]cachecore.ResolverFactory
	backends  map[string]cachecore.BackendFactory
	closed    bool
}

var _ cachecore.Loader = (*Modules)(nil)

// NewModules returns an empty registry.
func NewModules() *Modules {
	return &Modules{
		resolvers: make(map[string]cachecore.ResolverFactory),
		backends:  make(map[string]cachecore.BackendFactory),
	}
}

func normalizeModuleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterResolver adds a resolver factory; duplicate names are rejected.
func (m *Modules) RegisterResolver(name string, factory cachecore.ResolverFactory) error {
	key := normalizeModuleName(name)
	if key == "" || factory == nil {
		return fmt.Errorf("resolver name and factory are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.resolvers[key]; exists {
		return fmt.Errorf("resolver %s already registered", key)
	}
	m.resolvers[key] = factory
	return nil
}

// RegisterBackend adds a backend factory; duplicate names are rejected.
func (m *Modules) RegisterBackend(name string, factory cachecore.BackendFactory) error {
	key := normalizeModuleName(name)
	if key == "" || factory == nil {
		return fmt.Errorf("backend name and factory are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.backends[key]; exists {
		return fmt.Errorf("backend %s already registered", key)
	}
	m.backends[key] = factory
	return nil
}

func (m *Modules) mustRegisterResolver(name string, factory cachecore.ResolverFactory) {
	if err := m.RegisterResolver(name, factory); err != nil {
		panic(err)
	}
}

func (m *Modules) mustRegisterBackend(name string, factory cachecore.BackendFactory) {
	if err := m.RegisterBackend(name, factory); err != nil {
		panic(err)
	}
}

// LoadResolver instantiates the named resolver.
func (m *Modules) LoadResolver(ctx context.Context, name string) (cachecore.Resolver, error) {
	key := normalizeModuleName(name)
	m.mu.RLock()
	factory, ok := m.resolvers[key]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrModulesClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: resolver %q", ErrModuleNotFound, name)
	}
	return factory(ctx)
}

// LoadBackend opens the named backend at loc.
func (m *Modules) LoadBackend(ctx context.Context, name string, loc cachecore.Location) (cachecore.Backend, error) {
	key := normalizeModuleName(name)
	m.mu.RLock()
	factory, ok := m.backends[key]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrModulesClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: backend %q", ErrModuleNotFound, name)
	}
	return factory(ctx, loc)
}

// Backends returns the registered backend names, sorted.
func (m *Modules) Backends() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.backends))
	for name := range m.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close marks the registry closed. It is safe to call more than once.
func (m *Modules) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
