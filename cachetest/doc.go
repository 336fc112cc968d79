// Package cachetest provides a reusable contract suite for cachecore.Backend
// implementations.
//
// Example pattern (backend test):
//
//	func TestRedisBackendContract(t *testing.T) {
//		backend := newTestRedisBackend(t)
//		t.Cleanup(func() { _ = backend.Close() })
//
//		// Namespace keys per test and tune TTL waits for backend semantics as needed.
//		cachetest.RunBackendContract(t, backend, cachetest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  1500 * time.Millisecond,
//		})
//	}
package cachetest
