package rights

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/upb/catering-erp/models"
)

// CacheKey identifies one user's grant for one capability within a tenant
type CacheKey struct {
	TenantID      int64
	UserID        int64
	CapabilityKey string
}

// GrantCache is an expiring LRU of grants. A nil grant is cached too, so
// repeated checks against a capability the user lacks stay off the database.
type GrantCache struct {
	entries *lru.LRU[CacheKey, *models.RightsGrant]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// NewGrantCache creates a cache holding at most maxSize grants for ttl
func NewGrantCache(maxSize int, ttl time.Duration) *GrantCache {
	if maxSize <= 0 {
		maxSize = 4096
	}
	return &GrantCache{
		entries: lru.NewLRU[CacheKey, *models.RightsGrant](maxSize, nil, ttl),
	}
}

// Get returns the cached grant and whether the key was present
func (c *GrantCache) Get(key CacheKey) (*models.RightsGrant, bool) {
	g, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return g, ok
}

// Set stores grant, which may be nil
func (c *GrantCache) Set(key CacheKey, grant *models.RightsGrant) {
	c.entries.Add(key, grant)
}

// InvalidateUser drops every cached grant of userID in tenantID
func (c *GrantCache) InvalidateUser(tenantID, userID int64) int {
	removed := 0
	for _, k := range c.entries.Keys() {
		if k.TenantID == tenantID && k.UserID == userID {
			if c.entries.Remove(k) {
				removed++
			}
		}
	}
	return removed
}

// Stats returns cache statistics
func (c *GrantCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:    c.entries.Len(),
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}
}
