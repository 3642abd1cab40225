package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"support-agent/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// CachedEmbedder is a content-addressed Redis cache in front of another
// Embedder. Cache faults are logged and bypassed.
type CachedEmbedder struct {
	next   Embedder
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedEmbedder(next Embedder, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		logger: log.With(map[string]interface{}{
			"component": "embedding-cache",
			"model":     next.Model(),
		}),
	}
}

func (c *CachedEmbedder) Model() string { return c.next.Model() }

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", c.next.Model(), hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
	}

	out := make([][]float32, len(texts))
	var missIdx []int

	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("embedding cache read failed", map[string]interface{}{"error": err.Error()})
		cached = nil
	}

	for i := range texts {
		if cached != nil {
			if s, ok := cached[i].(string); ok {
				if v, ok := decodeVector([]byte(s)); ok {
					out[i] = v
					continue
				}
			}
		}
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("embedding cache write failed", map[string]interface{}{
			"error":  err.Error(),
			"misses": len(missIdx),
		})
	}

	if err := checkVectors(len(texts), out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, true
}
