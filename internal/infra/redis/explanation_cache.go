package redis

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ExplanationCache stores explanations as plain strings:
//
//	SET question:{questionID}:explanation {text} EX ttl
//
// and falls back to the explainer on a miss.
type ExplanationCache struct {
	client    *redis.Client
	explainer app.Explainer
	ttl       time.Duration
	sf        singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewExplanationCache(client *redis.Client, explainer app.Explainer, ttl time.Duration) *ExplanationCache {
	return &ExplanationCache{
		client:    client,
		explainer: explainer,
		ttl:       ttl,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ExplanationCache) GetExplanation(ctx context.Context, q domain.Question) (string, error) {
	key := c.key(q.ID)
	if text, err := c.client.Get(ctx, key).Result(); err == nil {
		return text, nil
	}

	result, err, _ := c.sf.Do(q.ID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		text, err := c.client.Get(ctx, key).Result()
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("read explanation cache %s: %v", key, err)
		}

		text, err = c.explainer.Explain(ctx, q)
		if err != nil {
			return "", err
		}
		if err := c.client.Set(ctx, key, text, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("write explanation cache %s: %v", key, err)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *ExplanationCache) key(questionID string) string {
	return "question:" + questionID + ":explanation"
}

func (c *ExplanationCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
