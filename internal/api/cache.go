package api

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/zombar/humanscore/internal/models"
)

// maxCachedUsers bounds the per-user result cache
const maxCachedUsers = 10000

type cachedResult struct {
	hash   string
	result models.AnalysisResult
}

// resultCache keeps each user's most recent analysis so that resubmitting
// the same text and exporting are served without a rescan
type resultCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]cachedResult
	order   []string
}

func newResultCache(limit int) *resultCache {
	return &resultCache{
		limit:   limit,
		entries: make(map[string]cachedResult),
	}
}

// get returns the user's result if it was computed for hash
func (c *resultCache) get(user, hash string) (models.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[user]
	if !ok || e.hash != hash {
		return models.AnalysisResult{}, false
	}
	return e.result, true
}

// latest returns the user's most recent result
func (c *resultCache) latest(user string) (models.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[user]
	return e.result, ok
}

func (c *resultCache) put(user, hash string, result models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[user]; !ok {
		c.order = append(c.order, user)
		for len(c.order) > c.limit {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.entries[user] = cachedResult{hash: hash, result: result}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
