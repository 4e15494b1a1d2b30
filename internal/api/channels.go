package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/blockedby/tgstats/internal/models"
)

// channelCache remembers resolved usernames so repeated requests for the
// same channel do not resolve it again.
type channelCache struct {
	resolver ChannelResolver
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cachedChannel
}

type cachedChannel struct {
	channel models.Channel
	expires time.Time
}

func newChannelCache(resolver ChannelResolver, ttl time.Duration) *channelCache {
	return &channelCache{
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cachedChannel),
	}
}

func (c *channelCache) resolve(ctx context.Context, username string) (models.Channel, error) {
	key := strings.ToLower(username)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Before(entry.expires) {
		return entry.channel, nil
	}

	channel, err := c.resolver.ResolveChannel(ctx, username)
	if err != nil {
		return models.Channel{}, err
	}

	c.mu.Lock()
	c.entries[key] = cachedChannel{channel: channel, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return channel, nil
}
