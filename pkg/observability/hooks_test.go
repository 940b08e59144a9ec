package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEnrichmentHooks{}
	e.OnComputeStart(ctx, "hallmark", 50)
	e.OnComputeComplete(ctx, "hallmark", "ok", time.Second, nil)

	i := NoopIterativeHooks{}
	i.OnIteration(ctx, "hallmark", 1, "HYPOXIA", 4)
	i.OnStop(ctx, "hallmark", "exhausted", 3)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "enrichment")
	c.OnCacheMiss(ctx, "iterative")
	c.OnCacheSet(ctx, "enrichment", 1024)

	s := NoopServerHooks{}
	s.OnRequest(ctx, "POST", "/v1/enrichment")
	s.OnResponse(ctx, "POST", "/v1/enrichment", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Enrichment().(NoopEnrichmentHooks); !ok {
		t.Error("Enrichment() should return NoopEnrichmentHooks by default")
	}
	if _, ok := Iterative().(NoopIterativeHooks); !ok {
		t.Error("Iterative() should return NoopIterativeHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}

	customEnrichment := &testEnrichmentHooks{}
	SetEnrichmentHooks(customEnrichment)
	if Enrichment() != customEnrichment {
		t.Error("SetEnrichmentHooks should set custom hooks")
	}

	customIterative := &testIterativeHooks{}
	SetIterativeHooks(customIterative)
	if Iterative() != customIterative {
		t.Error("SetIterativeHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customServer := &testServerHooks{}
	SetServerHooks(customServer)
	if Server() != customServer {
		t.Error("SetServerHooks should set custom hooks")
	}

	Reset()
	if _, ok := Enrichment().(NoopEnrichmentHooks); !ok {
		t.Error("Reset() should restore NoopEnrichmentHooks")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Reset() should restore NoopServerHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEnrichmentHooks{}
	SetEnrichmentHooks(custom)

	// Setting nil should be ignored
	SetEnrichmentHooks(nil)

	if Enrichment() != custom {
		t.Error("SetEnrichmentHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testEnrichmentHooks struct{ NoopEnrichmentHooks }
type testIterativeHooks struct{ NoopIterativeHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testServerHooks struct{ NoopServerHooks }
