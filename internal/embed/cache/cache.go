// Package cache wraps an embed.Embedder with a content-addressed cache,
// generalizing go-enhanced-rag-service/embedding_service.go's in-process
// EmbeddingCache into a two-tier cache: github.com/redis/go-redis/v9 as the
// shared primary store, falling back to an in-memory LRU when Redis is
// unreachable so embedding still works (degraded) during a Redis outage.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/embed"
)

// CachedEmbedder decorates an embed.Embedder, serving repeated text from
// cache and only calling the underlying provider for cache misses.
type CachedEmbedder struct {
	next   embed.Embedder
	redis  *redis.Client
	lru    *lru
	log    *zap.Logger
	ttl    time.Duration
	prefix string
}

// New wraps next with a cache backed by redisClient (may be nil to disable
// the Redis tier) and a bounded in-memory LRU of lruSize entries.
func New(next embed.Embedder, redisClient *redis.Client, lruSize int, ttl time.Duration, log *zap.Logger) *CachedEmbedder {
	if lruSize <= 0 {
		lruSize = 10_000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{
		next:   next,
		redis:  redisClient,
		lru:    newLRU(lruSize),
		log:    log,
		ttl:    ttl,
		prefix: "ingestor:embed:",
	}
}

func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([]embed.Result, error) {
	out := make([]embed.Result, len(texts))
	keys := make([]string, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.key(text)
		keys[i] = key
		if v, ok := c.get(ctx, key); ok {
			out[i] = embed.Result{Vector: v}
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	results, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, r := range results {
		i := missIdx[j]
		out[i] = r
		if r.Err == nil {
			c.put(ctx, keys[i], r.Vector)
		}
	}
	return out, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%x", c.prefix, sum)
}

func (c *CachedEmbedder) get(ctx context.Context, key string) ([]float32, bool) {
	if v, ok := c.lru.get(key); ok {
		return v, true
	}
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && c.log != nil {
			c.log.Warn("embed cache redis get failed, falling back to LRU-only", zap.Error(err))
		}
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	c.lru.put(key, v)
	return v, true
}

func (c *CachedEmbedder) put(ctx context.Context, key string, v []float32) {
	c.lru.put(key, v)
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil && c.log != nil {
		c.log.Warn("embed cache redis set failed", zap.Error(err))
	}
}

// lru is a small fixed-capacity, mutex-guarded LRU used as the fallback
// tier when Redis is unavailable.
type lru struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type entry struct {
	key   string
	value []float32
}

func newLRU(capacity int) *lru {
	return &lru{capacity: capacity, items: make(map[string]*list.Element), order: list.New()}
}

func (l *lru) get(key string) ([]float32, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.items[key]
	if !ok {
		return nil, false
	}
	l.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (l *lru) put(key string, value []float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.items[key]; ok {
		el.Value.(*entry).value = value
		l.order.MoveToFront(el)
		return
	}
	el := l.order.PushFront(&entry{key: key, value: value})
	l.items[key] = el
	if l.order.Len() > l.capacity {
		oldest := l.order.Back()
		if oldest != nil {
			l.order.Remove(oldest)
			delete(l.items, oldest.Value.(*entry).key)
		}
	}
}
