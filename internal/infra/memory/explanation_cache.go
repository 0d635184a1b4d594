package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ExplanationCache caches explanations with a TTL so each question costs one generation call.
type ExplanationCache struct {
	explainer app.Explainer
	ttl       time.Duration
	clock     func() time.Time
	sf        singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedExplanation
}

type cachedExplanation struct {
	text      string
	expiresAt time.Time
}

func NewExplanationCache(explainer app.Explainer, ttl time.Duration) *ExplanationCache {
	return &ExplanationCache{
		explainer: explainer,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:     make(map[string]cachedExplanation),
	}
}

func (c *ExplanationCache) GetExplanation(ctx context.Context, q domain.Question) (string, error) {
	if text, ok := c.lookup(q.ID); ok {
		return text, nil
	}

	result, err, _ := c.sf.Do(q.ID, func() (interface{}, error) {
		if text, ok := c.lookup(q.ID); ok {
			return text, nil
		}
		text, err := c.explainer.Explain(ctx, q)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.cache[q.ID] = cachedExplanation{
			text:      text,
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *ExplanationCache) lookup(questionID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[questionID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return "", false
	}
	return entry.text, true
}

func (c *ExplanationCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
