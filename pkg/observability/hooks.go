// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about enrichment runs, iterative peeling, cache operations
// and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the library packages
// never import an observability backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEnrichmentHooks(&myEnrichmentHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Enrichment().OnComputeStart(ctx, library, terms)
//	// ... run the tests ...
//	observability.Enrichment().OnComputeComplete(ctx, library, status, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Enrichment Hooks
// =============================================================================

// EnrichmentHooks receives events from single-pass enrichment runs.
type EnrichmentHooks interface {
	// OnComputeStart is called once the terms to test are known.
	OnComputeStart(ctx context.Context, library string, terms int)

	// OnComputeComplete is called with the run status ("ok", "failed", ...).
	OnComputeComplete(ctx context.Context, library, status string, duration time.Duration, err error)
}

// =============================================================================
// Iterative Hooks
// =============================================================================

// IterativeHooks receives events from the iterative peeling loop.
type IterativeHooks interface {
	// OnIteration records a committed iteration and how many genes it removed.
	OnIteration(ctx context.Context, library string, iteration int, term string, removed int)

	// OnStop records why the loop ended.
	OnStop(ctx context.Context, library, reason string, iterations int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the HTTP API.
type ServerHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response status and latency.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEnrichmentHooks is a no-op implementation of EnrichmentHooks.
type NoopEnrichmentHooks struct{}

func (NoopEnrichmentHooks) OnComputeStart(context.Context, string, int) {}
func (NoopEnrichmentHooks) OnComputeComplete(context.Context, string, string, time.Duration, error) {
}

// NoopIterativeHooks is a no-op implementation of IterativeHooks.
type NoopIterativeHooks struct{}

func (NoopIterativeHooks) OnIteration(context.Context, string, int, string, int) {}
func (NoopIterativeHooks) OnStop(context.Context, string, string, int)           {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	enrichmentHooks EnrichmentHooks = NoopEnrichmentHooks{}
	iterativeHooks  IterativeHooks  = NoopIterativeHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	serverHooks     ServerHooks     = NoopServerHooks{}
	hooksMu         sync.RWMutex
)

// SetEnrichmentHooks registers custom enrichment hooks.
// This should be called once at application startup before any analysis runs.
func SetEnrichmentHooks(h EnrichmentHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		enrichmentHooks = h
	}
}

// SetIterativeHooks registers custom iterative hooks.
func SetIterativeHooks(h IterativeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		iterativeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom HTTP server hooks.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Enrichment returns the registered enrichment hooks.
func Enrichment() EnrichmentHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return enrichmentHooks
}

// Iterative returns the registered iterative hooks.
func Iterative() IterativeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return iterativeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered HTTP server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	enrichmentHooks = NoopEnrichmentHooks{}
	iterativeHooks = NoopIterativeHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
