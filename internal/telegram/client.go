// Package telegram provides the MTProto side of the statistics service:
// client lifecycle, per-shard invokers and request dispatch.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
)

// ErrChannelNotFound is returned when a username does not resolve to a channel.
var ErrChannelNotFound = errors.New("channel not found")

// ChatSink receives the chats and users a resolve call returns.
type ChatSink interface {
	ProcessUsers(users []tg.UserClass)
	ProcessChats(chats []tg.ChatClass)
}

// Client provides the high-level telegram operations the service needs
// outside of statistics fetching.
type Client struct {
	source      InvokerSource
	rateLimiter *RateLimiter
	sink        ChatSink
	log         *logger.Logger
}

// NewClient creates a client over source. sink may be nil.
func NewClient(source InvokerSource, rateLimiter *RateLimiter, sink ChatSink) *Client {
	if rateLimiter == nil {
		rateLimiter = DefaultRateLimiter()
	}
	return &Client{
		source:      source,
		rateLimiter: rateLimiter,
		sink:        sink,
		log:         logger.Get(),
	}
}

// API returns the raw tg.Client bound to the main connection.
func (c *Client) API(ctx context.Context) (*tg.Client, error) {
	inv, err := c.source.Invoker(ctx, 0)
	if err != nil {
		return nil, err
	}
	return tg.NewClient(inv), nil
}

// ResolveChannel resolves channel username to Channel info.
// username can be with or without @ prefix.
func (c *Client) ResolveChannel(ctx context.Context, username string) (models.Channel, error) {
	username = strings.TrimPrefix(username, "@")
	if username == "" {
		return models.Channel{}, fmt.Errorf("resolve username: %w", ErrChannelNotFound)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return models.Channel{}, err
	}

	c.log.Debug().Str("username", username).Msg("telegram: resolving channel username")
	api, err := c.API(ctx)
	if err != nil {
		return models.Channel{}, err
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.checkFloodWait(err)
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return models.Channel{}, fmt.Errorf("resolve username %s: %w", username, ErrChannelNotFound)
		}
		c.log.Error().Err(err).Str("username", username).Msg("telegram: failed to resolve username")
		return models.Channel{}, fmt.Errorf("resolve username %s: %w", username, err)
	}
	if c.sink != nil {
		c.sink.ProcessUsers(resolved.Users)
		c.sink.ProcessChats(resolved.Chats)
	}

	var ch *tg.Channel
	for _, chat := range resolved.Chats {
		if v, ok := chat.(*tg.Channel); ok {
			ch = v
			break
		}
	}
	if ch == nil {
		return models.Channel{}, fmt.Errorf("not a channel %s: %w", username, ErrChannelNotFound)
	}

	fullCh, err := api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  ch.ID,
		AccessHash: ch.AccessHash,
	})
	if err != nil {
		c.checkFloodWait(err)
		return models.Channel{}, fmt.Errorf("get full channel: %w", err)
	}

	channel := models.Channel{
		ID:         ch.ID,
		AccessHash: ch.AccessHash,
		Username:   username,
		Title:      ch.Title,
		Megagroup:  ch.Megagroup,
	}
	if full, ok := fullCh.FullChat.(*tg.ChannelFull); ok {
		if dc, ok := full.GetStatsDC(); ok {
			channel.StatsDC = models.ShardID(dc)
		}
	}

	c.log.Info().Int64("channel_id", channel.ID).Bool("megagroup", channel.Megagroup).Int("stats_dc", int(channel.StatsDC)).Msg("telegram: channel resolved")
	return channel, nil
}

// ChannelExists checks if channel username exists and is accessible.
func (c *Client) ChannelExists(ctx context.Context, username string) (bool, error) {
	_, err := c.ResolveChannel(ctx, username)
	if errors.Is(err, ErrChannelNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) checkFloodWait(err error) {
	if d, ok := tgerr.AsFloodWait(err); ok {
		c.log.Warn().Dur("wait", d).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
		c.rateLimiter.SetFloodWait(d)
	}
}
