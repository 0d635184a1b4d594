package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"cyberhoot-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCodeRegistryReservesOnce(t *testing.T) {
	mr, client := newMiniredis(t)
	reg := NewCodeRegistry(client, time.Hour)
	ctx := context.Background()

	if ok, err := reg.Reserve(ctx, "AB12CD"); err != nil || !ok {
		t.Fatalf("expected reservation, got %v (%v)", ok, err)
	}
	if ok, _ := reg.Reserve(ctx, "AB12CD"); ok {
		t.Fatalf("expected second reservation to fail")
	}
	if ttl := mr.TTL("session:code:AB12CD"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}

	if err := reg.Release(ctx, "AB12CD"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("session:code:AB12CD") {
		t.Fatalf("expected key removed")
	}

	mr.Close()
	if _, err := reg.Reserve(ctx, "ZZZZZZ"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestLobbyStoreSetsAndClearsKeys(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewLobbyStore(client, time.Minute)

	lobby := store.GetOrCreate("session-1")
	if !mr.Exists("quiz:lobby:session-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, ok := store.Get("session-1"); !ok || got != lobby {
		t.Fatalf("expected lobby kept in process")
	}

	store.DeleteIfIdle("session-1")
	if mr.Exists("quiz:lobby:session-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestExplanationCacheCachesInRedis(t *testing.T) {
	mr, client := newMiniredis(t)
	explainer := &countingExplainer{text: "TLS encrypts traffic in transit."}
	cache := NewExplanationCache(client, explainer, time.Minute)
	q := domain.Question{ID: "q1"}

	if _, err := cache.GetExplanation(context.Background(), q); err != nil {
		t.Fatalf("get explanation: %v", err)
	}
	if explainer.count() != 1 {
		t.Fatalf("expected explainer called once, got %d", explainer.count())
	}
	if got, _ := mr.Get("question:q1:explanation"); got != explainer.text {
		t.Fatalf("expected cached text, got %q", got)
	}

	// Second call should hit cache, explainer not incremented.
	text, _ := cache.GetExplanation(context.Background(), q)
	if explainer.count() != 1 || text != explainer.text {
		t.Fatalf("expected cache hit, explainer calls=%d", explainer.count())
	}
}

func TestExplanationCacheServesWhenRedisIsDown(t *testing.T) {
	mr, client := newMiniredis(t)
	explainer := &countingExplainer{text: "fallback"}
	cache := NewExplanationCache(client, explainer, time.Minute)
	mr.Close()

	text, err := cache.GetExplanation(context.Background(), domain.Question{ID: "q1"})
	if err != nil || text != "fallback" {
		t.Fatalf("expected explainer result, got %q (%v)", text, err)
	}
}

type countingExplainer struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (e *countingExplainer) Explain(context.Context, domain.Question) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.text, nil
}

func (e *countingExplainer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
