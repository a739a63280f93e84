package quiz

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = 5 * time.Minute

// Cache keeps quiz documents in Redis in front of a slower loader.
// Quizzes are read-only to this service, so a TTL is the only invalidation.
type Cache struct {
	client *redis.Client
	loader Repository
	ttl    time.Duration
	prefix string

	sf    singleflight.Group
	rndMu sync.Mutex
	rnd   *rand.Rand
}

var _ Repository = (*Cache)(nil)

// NewCache wraps loader with a Redis read-through cache.
func NewCache(client *redis.Client, loader Repository, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		client: client,
		loader: loader,
		ttl:    ttl,
		prefix: "quiz:doc:",
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Get returns the cached quiz or loads it once for concurrent callers.
func (c *Cache) Get(ctx context.Context, quizID string) (Quiz, error) {
	if q, ok := c.read(ctx, quizID); ok {
		return q, nil
	}

	v, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if q, ok := c.read(ctx, quizID); ok {
			return q, nil
		}
		q, err := c.loader.Get(ctx, quizID)
		if err != nil {
			return Quiz{}, err
		}
		if data, err := json.Marshal(q); err == nil {
			// best effort, a failed write only costs another load
			_ = c.client.Set(ctx, c.key(quizID), data, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return Quiz{}, err
	}
	return v.(Quiz), nil
}

// Invalidate drops a cached quiz document.
func (c *Cache) Invalidate(ctx context.Context, quizID string) error {
	return c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *Cache) read(ctx context.Context, quizID string) (Quiz, bool) {
	data, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		// redis.Nil and transport errors both fall through to the loader
		return Quiz{}, false
	}
	var q Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		return Quiz{}, false
	}
	return q, true
}

func (c *Cache) key(quizID string) string {
	return c.prefix + quizID
}

func (c *Cache) ttlWithJitter() time.Duration {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
