package cache

import (
	"context"
	"testing"
	"time"

	"github.com/settlehq/settle/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Status string `json:"status"`
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "opstatus:v1::0xabc", GenerateKey(PrefixOpStatus, "0xabc"))
	assert.Equal(t, "walletbalance:v1::0x1:usdc", GenerateKey(PrefixWalletBalance, "0x1", "usdc"))
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(config.GetDefaultConfig())

	SetJSON(ctx, c, "a:1", entry{Status: "pending"}, time.Minute)
	SetJSON(ctx, c, "a:2", entry{Status: "success"}, 0)
	SetJSON(ctx, c, "b:1", entry{Status: "reverted"}, time.Minute)

	got, ok := GetJSON[entry](ctx, c, "a:1")
	require.True(t, ok)
	assert.Equal(t, "pending", got.Status)

	c.DeleteByPrefix(ctx, "a:")
	_, ok = c.Get(ctx, "a:1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "a:2")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "b:1")
	assert.True(t, ok)

	c.Delete(ctx, "b:1")
	_, ok = c.Get(ctx, "b:1")
	assert.False(t, ok)
}

func TestInMemoryCacheDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = false
	c := NewInMemoryCache(cfg)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestGetJSONCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(config.GetDefaultConfig())
	c.Set(ctx, "k", []byte("{not json"), time.Minute)

	_, ok := GetJSON[entry](ctx, c, "k")
	assert.False(t, ok)
}
