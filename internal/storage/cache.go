package storage

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"traderadar/backend/internal/models"
)

// ListCache keeps recently read trade lists in memory for a short TTL.
// Writes through Service drop the affected key on every instance.
type ListCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func NewListCache(maxCost int64, ttl time.Duration) (*ListCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ListCache{c: c, ttl: ttl}, nil
}

func listKey(userID string, kind models.ListKind) string {
	return "list:" + userID + ":" + string(kind)
}

func (c *ListCache) Get(userID string, kind models.ListKind) ([]models.TradeListEntry, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.c.Get(listKey(userID, kind))
	if !ok {
		return nil, false
	}
	entries, ok := v.([]models.TradeListEntry)
	return entries, ok
}

func (c *ListCache) Set(userID string, kind models.ListKind, entries []models.TradeListEntry) {
	if c == nil {
		return
	}
	c.c.SetWithTTL(listKey(userID, kind), entries, int64(len(entries))+1, c.ttl)
}

func (c *ListCache) Del(key string) {
	if c == nil {
		return
	}
	c.c.Del(key)
}

// Wait blocks until buffered writes are applied.
func (c *ListCache) Wait() {
	if c != nil {
		c.c.Wait()
	}
}
