package cacheplugin

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/goforj/cacheplugin/cachecore"
	"github.com/goforj/cacheplugin/cachefake"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFakeHandle(t *testing.T, loader *cachefake.Loader, opts ...Option) *Handle {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(loader, opts...)
}

func openFakeHandle(t *testing.T, loader *cachefake.Loader, opts ...Option) *Handle {
	t.Helper()
	h := newFakeHandle(t, loader, opts...)
	if err := h.Open(context.Background(), nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

func TestOpenReachesReady(t *testing.T) {
	loader := cachefake.New()
	h := openFakeHandle(t, loader)

	if !h.Ready() || h.State() != "ready" {
		t.Fatalf("expected ready handle, got %s", h.State())
	}
	loc, ok := h.Location()
	if !ok || loc.Path != cachefake.DefaultPath || loc.Name != defaultLocationName {
		t.Fatalf("unexpected location: %+v ok=%v", loc, ok)
	}
	if got := loader.Backend().Location(); got != loc {
		t.Fatalf("expected backend opened at %+v, got %+v", loc, got)
	}
	want := []cachefake.Op{cachefake.OpLoadResolver, cachefake.OpResolve, cachefake.OpLoadBackend}
	if got := loader.Trace(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected acquisition order: %v", got)
	}
	loader.AssertCalled(t, cachefake.OpLoadResolver, defaultResolverName, 1)
	loader.AssertCalled(t, cachefake.OpLoadBackend, defaultStorageName, 1)
}

func TestCloseReleasesInReverseOrder(t *testing.T) {
	loader := cachefake.New()
	h := newFakeHandle(t, loader)
	if err := h.Open(context.Background(), nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	loader.Reset()

	if err := h.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	want := []cachefake.Op{cachefake.OpCloseBackend, cachefake.OpCloseResolver, cachefake.OpCloseLoader}
	if got := loader.Trace(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected release order: %v", got)
	}
	if _, ok := h.Location(); ok {
		t.Fatalf("expected location cleared after close")
	}
	if h.Driver() != "" {
		t.Fatalf("expected no driver after close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	loader := cachefake.New()
	h := newFakeHandle(t, loader)
	ctx := context.Background()
	if err := h.Open(ctx, nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	loader.AssertTotal(t, cachefake.OpCloseBackend, 1)
	loader.AssertTotal(t, cachefake.OpCloseResolver, 1)
	loader.AssertTotal(t, cachefake.OpCloseLoader, 1)
}

func TestCloseNeverOpenedIsNoop(t *testing.T) {
	loader := cachefake.New()
	h := newFakeHandle(t, loader)
	if err := h.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := loader.Trace(); len(got) != 0 {
		t.Fatalf("expected no module calls, got %v", got)
	}
	if h.State() != "uninitialized" {
		t.Fatalf("expected uninitialized, got %s", h.State())
	}
}

func TestCloseJoinsReleaseErrors(t *testing.T) {
	loader := cachefake.New()
	h := newFakeHandle(t, loader)
	ctx := context.Background()
	if err := h.Open(ctx, nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	boom := errors.New("boom")
	loader.CloseErr = boom

	err := h.Close(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined close error, got %v", err)
	}
	if h.State() != "closed" {
		t.Fatalf("expected closed despite errors, got %s", h.State())
	}
	loader.AssertTotal(t, cachefake.OpCloseLoader, 1)
}

func TestOpenResolverLoadFailure(t *testing.T) {
	loader := cachefake.New()
	loader.ResolverErr = ErrModuleNotFound
	h := newFakeHandle(t, loader)
	errorKey := NewKey("user/tests/cache", "")

	err := h.Open(context.Background(), errorKey)
	if !IsKind(err, ResolverUnavailable) || !errors.Is(err, ErrResolverUnavailable) {
		t.Fatalf("expected resolver unavailable, got %v", err)
	}
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	loader.AssertNotCalled(t, cachefake.OpLoadBackend)
	loader.AssertTotal(t, cachefake.OpCloseLoader, 1)
	if h.State() != "closed" {
		t.Fatalf("expected closed after failed open, got %s", h.State())
	}
	if kind, _ := errorKey.Meta("error/kind"); kind != "ResolverUnavailable" {
		t.Fatalf("expected error key kind, got %q", kind)
	}
	if mod, _ := errorKey.Meta("error/submodule"); mod != defaultResolverName {
		t.Fatalf("expected resolver module on error key, got %q", mod)
	}
}

func TestOpenResolveFailureReleasesResolver(t *testing.T) {
	loader := cachefake.New()
	loader.ResolveErr = errors.New("no home")
	h := newFakeHandle(t, loader)

	err := h.Open(context.Background(), nil)
	if !IsKind(err, ResolverUnavailable) {
		t.Fatalf("expected resolver unavailable, got %v", err)
	}
	want := []cachefake.Op{cachefake.OpLoadResolver, cachefake.OpResolve, cachefake.OpCloseResolver, cachefake.OpCloseLoader}
	if got := loader.Trace(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected trace: %v", got)
	}
	if _, ok := h.Location(); ok {
		t.Fatalf("expected no location after failed open")
	}
}

func TestOpenBackendFailureReleasesResolverFirst(t *testing.T) {
	loader := cachefake.New()
	loader.BackendErr = errors.New("disk full")
	h := newFakeHandle(t, loader, WithStorage("sqlite"))

	err := h.Open(context.Background(), nil)
	if !IsKind(err, BackendUnavailable) || !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Module != "sqlite" {
		t.Fatalf("expected module sqlite, got %+v", initErr)
	}
	want := []cachefake.Op{
		cachefake.OpLoadResolver, cachefake.OpResolve, cachefake.OpLoadBackend,
		cachefake.OpCloseResolver, cachefake.OpCloseLoader,
	}
	if got := loader.Trace(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected trace: %v", got)
	}
	// The handle is unusable and closing it releases nothing twice.
	if err := h.Close(context.Background()); err != nil {
		t.Fatalf("close after failed open: %v", err)
	}
	loader.AssertTotal(t, cachefake.OpCloseResolver, 1)
}

func TestOpenBadEncryptionKeyReleasesBackend(t *testing.T) {
	loader := cachefake.New()
	h := newFakeHandle(t, loader, WithEncryptionKey([]byte("short")))

	err := h.Open(context.Background(), nil)
	if !IsKind(err, BackendUnavailable) || !errors.Is(err, ErrEncryptionKey) {
		t.Fatalf("expected backend unavailable with key error, got %v", err)
	}
	if !loader.Backend().Closed() {
		t.Fatalf("expected opened backend to be closed")
	}
	loader.AssertTotal(t, cachefake.OpCloseResolver, 1)
}

func TestOpenTwiceAndReopenAfterClose(t *testing.T) {
	loader := cachefake.New()
	h := newFakeHandle(t, loader)
	ctx := context.Background()
	if err := h.Open(ctx, nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := h.Open(ctx, nil); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("expected already open, got %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := h.Open(ctx, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
	loader.AssertTotal(t, cachefake.OpLoadResolver, 1)
}

func TestOpenPackageFuncReturnsNilOnFailure(t *testing.T) {
	loader := cachefake.New()
	loader.BackendErr = errors.New("nope")
	h, err := Open(context.Background(), loader, WithLogger(quietLogger()))
	if h != nil || !IsKind(err, BackendUnavailable) {
		t.Fatalf("expected nil handle and backend error, got %v %v", h, err)
	}
}

func TestOpenWithRegistryMissingResolver(t *testing.T) {
	modules := NewModules()
	if err := modules.RegisterBackend("memory", func(_ context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newMemoryBackend(loc.Path, 0, 0), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := New(modules, WithStorage("memory"), WithLogger(quietLogger()))
	err := h.Open(context.Background(), nil)
	if !IsKind(err, ResolverUnavailable) || !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected resolver unavailable, got %v", err)
	}
	if _, err := modules.LoadBackend(context.Background(), "memory", cachecore.Location{}); !errors.Is(err, ErrModulesClosed) {
		t.Fatalf("expected registry released, got %v", err)
	}

	ks := NewKeySet()
	if status, err := h.Get(context.Background(), NewKey("user/sw/app", ""), ks); status != StatusError || !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected unusable handle, got %v %v", status, err)
	}
}

func TestOpenDefaultModulesMemory(t *testing.T) {
	home := t.TempDir()
	cfg := Config{StorageName: "memory", HomeDir: home}
	h, err := Open(context.Background(), nil, WithConfig(cfg), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer h.Close(context.Background())
	if h.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", h.Driver())
	}
	if h.ID() == "" {
		t.Fatalf("expected handle id")
	}
}

func TestHandleConcurrentUse(t *testing.T) {
	loader := cachefake.New()
	h := openFakeHandle(t, loader)
	ctx := context.Background()
	parent := NewKey("user/sw/app", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ks := NewKeySet(NewKey("user/sw/app/k", "v"))
			if status, err := h.Set(ctx, parent, ks); err != nil || status == StatusError {
				t.Errorf("set failed: %v %v", status, err)
			}
			if status, err := h.Get(ctx, parent, NewKeySet()); err != nil || status == StatusError {
				t.Errorf("get failed: %v %v", status, err)
			}
		}()
	}
	wg.Wait()
}
