package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cyberhoot-service/internal/domain"
)

func TestExplanationCacheCaches(t *testing.T) {
	explainer := &countingExplainer{text: "Port 22 is the IANA port for SSH."}
	cache := NewExplanationCache(explainer, time.Minute)
	q := domain.Question{ID: "q1", Text: "Which port does SSH use?"}

	for i := 0; i < 2; i++ {
		text, err := cache.GetExplanation(context.Background(), q)
		if err != nil {
			t.Fatalf("get explanation: %v", err)
		}
		if text != explainer.text {
			t.Fatalf("unexpected text %q", text)
		}
	}
	if explainer.count() != 1 {
		t.Fatalf("expected cache hit, explainer calls %d", explainer.count())
	}
}

func TestExplanationCacheExpires(t *testing.T) {
	explainer := &countingExplainer{text: "because"}
	cache := NewExplanationCache(explainer, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	q := domain.Question{ID: "q1"}
	_, _ = cache.GetExplanation(context.Background(), q)
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetExplanation(context.Background(), q)
	if explainer.count() != 2 {
		t.Fatalf("expected reload after expiry, explainer calls %d", explainer.count())
	}
}

func TestExplanationCacheDoesNotCacheErrors(t *testing.T) {
	explainer := &countingExplainer{err: domain.ErrGateway}
	cache := NewExplanationCache(explainer, time.Minute)
	q := domain.Question{ID: "q1"}

	for i := 0; i < 2; i++ {
		if _, err := cache.GetExplanation(context.Background(), q); !errors.Is(err, domain.ErrGateway) {
			t.Fatalf("expected gateway error, got %v", err)
		}
	}
	if explainer.count() != 2 {
		t.Fatalf("expected failures not cached, explainer calls %d", explainer.count())
	}
}

type countingExplainer struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (e *countingExplainer) Explain(context.Context, domain.Question) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.text, e.err
}

func (e *countingExplainer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
