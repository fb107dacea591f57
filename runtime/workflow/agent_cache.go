package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// AgentConfig is the set of fields that identify one agent connection
// (endpoint, credentials shape, etc.) for cache-key hashing purposes. The
// workflow engine does not interpret these fields itself; it only hashes
// them to decide whether two node configs refer to the same live agent
// connection.
type AgentConfig map[string]any

// HashAgentConfig canonicalizes cfg (sorted keys, JSON-encoded) and returns
// a hex digest suitable as an AgentCache key, so that two node configs with
// identical fields in different map iteration order hash identically.
func HashAgentConfig(cfg AgentConfig) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		ordered = append(ordered, key, cfg[key])
	}
	// Only unmarshalable values (channels, funcs) would fail here, and
	// those never appear in a JSON-sourced node config. If one does, every
	// such config hashes to the same digest (that of empty input) and so
	// shares one cache key.
	b, _ := json.Marshal(ordered)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// AgentCacheEntry is one cached, live agent connection.
type AgentCacheEntry struct {
	AgentID string
	Handle  any
}

// AgentCache is a TTL-based in-memory cache of live agent connections,
// keyed by HashAgentConfig. It mirrors the TTL expiry of
// runtime/registry/cache.go's MemoryCache, adapted to cache agent handles
// instead of toolset schemas; expired entries are dropped lazily on Get and
// there is no background refresh.
type AgentCache struct {
	mu      sync.RWMutex
	entries map[string]*agentCacheEntry
	ttl     time.Duration
}

type agentCacheEntry struct {
	entry     AgentCacheEntry
	expiresAt time.Time
}

// NewAgentCache creates a cache whose entries expire after ttl. A ttl of
// zero means entries never expire.
func NewAgentCache(ttl time.Duration) *AgentCache {
	return &AgentCache{
		entries: make(map[string]*agentCacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached entry for key, or ok=false if absent or expired.
func (c *AgentCache) Get(_ context.Context, key string) (AgentCacheEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return AgentCacheEntry{}, false
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return AgentCacheEntry{}, false
	}
	return e.entry, true
}

// Set stores entry under key, resetting its expiry.
func (c *AgentCache) Set(_ context.Context, key string, entry AgentCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &agentCacheEntry{entry: entry, expiresAt: time.Now().Add(c.ttl)}
}

// Delete evicts key, if present.
func (c *AgentCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of cached entries, including any not yet swept
// for expiry.
func (c *AgentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
