package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/cache"
	"github.com/sympdx-server/internal/domain"
)

// CachedEngine wraps the pure diagnosis engine with an in-memory LRU tier
// and an optional Redis tier keyed by the reported symptom set. The engine
// itself stays pure; the wrapper owns all cache state and must be
// invalidated when the catalog is reloaded.
type CachedEngine struct {
	engine *DiagnosisEngine
	memory *lru.Cache[string, []domain.Candidate]
	redis  *cache.Client // optional second tier, may be nil
	ttl    time.Duration
	log    *logrus.Logger

	statsMu sync.Mutex
	stats   ResultCacheStats
}

// ResultCacheStats tracks cache effectiveness.
type ResultCacheStats struct {
	MemoryHits    int64 `json:"memory_hits"`
	RedisHits     int64 `json:"redis_hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
}

// NewCachedEngine creates a caching wrapper around the engine. redisClient
// may be nil for in-memory-only operation.
func NewCachedEngine(engine *DiagnosisEngine, size int, redisClient *cache.Client, ttl time.Duration, logger *logrus.Logger) (*CachedEngine, error) {
	if size <= 0 {
		size = 1000
	}
	memory, err := lru.New[string, []domain.Candidate](size)
	if err != nil {
		return nil, err
	}
	return &CachedEngine{
		engine: engine,
		memory: memory,
		redis:  redisClient,
		ttl:    ttl,
		log:    logger,
	}, nil
}

// Diagnose returns the cached candidate list for identical inputs, falling
// through to the pure engine on a miss. Validation errors are never cached.
func (c *CachedEngine) Diagnose(ctx context.Context, reportedSymptoms []string, catalog *domain.Catalog, topN int) ([]domain.Candidate, error) {
	key := resultKey(reportedSymptoms, topN)

	if cached, ok := c.memory.Get(key); ok {
		c.recordHit(true)
		return cloneCandidates(cached), nil
	}

	if c.redis != nil {
		var cached []domain.Candidate
		found, err := c.redis.GetJSON(ctx, key, &cached)
		if err != nil {
			c.log.WithError(err).Warn("Redis result cache read failed, falling through")
		} else if found {
			c.memory.Add(key, cached)
			c.recordHit(false)
			return cloneCandidates(cached), nil
		}
	}

	candidates, err := c.engine.Diagnose(reportedSymptoms, catalog, topN)
	if err != nil {
		return nil, err
	}

	c.memory.Add(key, candidates)
	if c.redis != nil {
		if err := c.redis.SetJSON(ctx, key, candidates, c.ttl); err != nil {
			c.log.WithError(err).Warn("Redis result cache write failed")
		}
	}

	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()

	return cloneCandidates(candidates), nil
}

// Invalidate drops every cached result. Call after a catalog reload so
// stale rankings cannot be served against the new snapshot.
func (c *CachedEngine) Invalidate(ctx context.Context) {
	c.memory.Purge()
	if c.redis != nil {
		if err := c.redis.FlushPrefix(ctx, resultKeyPrefix); err != nil {
			c.log.WithError(err).Warn("Redis result cache flush failed")
		}
	}

	c.statsMu.Lock()
	c.stats.Invalidations++
	c.statsMu.Unlock()

	c.log.Info("Engine result cache invalidated")
}

// Stats returns a snapshot of cache statistics.
func (c *CachedEngine) Stats() ResultCacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *CachedEngine) recordHit(memory bool) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if memory {
		c.stats.MemoryHits++
	} else {
		c.stats.RedisHits++
	}
}

const resultKeyPrefix = "sympdx:diagnose:"

// resultKey hashes the sorted symptom set and topN so that symptom order
// never affects cache identity.
func resultKey(reportedSymptoms []string, topN int) string {
	sorted := make([]string, len(reportedSymptoms))
	copy(sorted, reportedSymptoms)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(strings.Join(sorted, ",") + "|" + strconv.Itoa(topN)))
	return resultKeyPrefix + hex.EncodeToString(h[:])
}

// cloneCandidates returns a defensive copy, including the per-candidate
// symptom slices, so callers cannot mutate cached entries.
func cloneCandidates(in []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(in))
	copy(out, in)
	for i := range out {
		out[i].MatchedSymptoms = append([]string(nil), out[i].MatchedSymptoms...)
		out[i].MissingSymptoms = append([]string(nil), out[i].MissingSymptoms...)
	}
	return out
}
