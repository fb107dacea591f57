package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashAgentConfigStableAcrossKeyOrder(t *testing.T) {
	a := AgentConfig{"url": "http://x", "model": "gpt"}
	b := AgentConfig{"model": "gpt", "url": "http://x"}
	assert.Equal(t, HashAgentConfig(a), HashAgentConfig(b))
}

func TestHashAgentConfigDiffersOnContent(t *testing.T) {
	a := AgentConfig{"url": "http://x"}
	b := AgentConfig{"url": "http://y"}
	assert.NotEqual(t, HashAgentConfig(a), HashAgentConfig(b))
}

func TestAgentCacheGetSetExpiry(t *testing.T) {
	c := NewAgentCache(10 * time.Millisecond)
	key := HashAgentConfig(AgentConfig{"url": "http://x"})
	c.Set(context.Background(), key, AgentCacheEntry{AgentID: "a1"})

	got, ok := c.Get(context.Background(), key)
	assert.True(t, ok)
	assert.Equal(t, "a1", got.AgentID)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(context.Background(), key)
	assert.False(t, ok)
}

func TestAgentCacheNoTTLNeverExpires(t *testing.T) {
	c := NewAgentCache(0)
	c.Set(context.Background(), "k", AgentCacheEntry{AgentID: "a1"})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(context.Background(), "k")
	assert.True(t, ok)
}
