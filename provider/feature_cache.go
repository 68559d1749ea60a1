package provider

import (
	"sync"
	"time"

	"github.com/scentlab/scentkit/core"
)

// featureCache 是香水特征的内存缓存，采用 LRU + TTL 策略，
// 减少内容推荐时对特征来源的重复访问。nil 值也会缓存（负缓存）。
type featureCache struct {
	mu      sync.Mutex
	entries map[int64]*featureEntry
	maxSize int
	ttl     time.Duration
	ticker  *time.Ticker
	stop    chan struct{}
}

type featureEntry struct {
	features   *core.ItemFeatures
	expireTime time.Time
	accessTime time.Time
}

func newFeatureCache(maxSize int, ttl time.Duration) *featureCache {
	c := &featureCache{
		entries: make(map[int64]*featureEntry),
		maxSize: maxSize,
		ttl:     ttl,
		ticker:  time.NewTicker(time.Minute),
		stop:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *featureCache) get(itemID int64) (*core.ItemFeatures, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[itemID]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expireTime) {
		delete(c.entries, itemID)
		return nil, false
	}
	e.accessTime = time.Now()
	return e.features, true
}

func (c *featureCache) set(itemID int64, f *core.ItemFeatures) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	now := time.Now()
	c.entries[itemID] = &featureEntry{
		features:   f,
		expireTime: now.Add(c.ttl),
		accessTime: now,
	}
}

// evictLRU 删除最久未访问的条目，调用方需持锁。
func (c *featureCache) evictLRU() {
	var oldestKey int64
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.accessTime.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.accessTime
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

func (c *featureCache) cleanup() {
	for {
		select {
		case <-c.ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expireTime) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			c.ticker.Stop()
			return
		}
	}
}

func (c *featureCache) close() {
	close(c.stop)
}
