package api

import (
	"context"
	"net/http"

	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/telegram"
)

// StatsService defines the statistics operations the API exposes.
type StatsService interface {
	ChannelStatistics(ctx context.Context, channel models.Channel) (models.ChannelStatistics, error)
	SupergroupStatistics(ctx context.Context, channel models.Channel) (models.SupergroupStatistics, error)
	Zoom(ctx context.Context, channel models.Channel, token string, x int64) (models.StatisticalGraph, error)
	MessageStatistics(ctx context.Context, channel models.Channel, msgID int) (models.MessageStatistics, error)
	StoryStatistics(ctx context.Context, channel models.Channel, storyID int) (models.MessageStatistics, error)
	ForwardsPage(ctx context.Context, channel models.Channel, target models.RecentPostID, token models.ForwardsToken) (models.PublicForwardsSlice, error)
	BoostStatus(ctx context.Context, channel models.Channel) (models.BoostStatus, error)
	BoostsPage(ctx context.Context, channel models.Channel, token models.BoostsToken) (models.BoostsListSlice, error)
}

// ChannelResolver turns a public username into a channel.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, username string) (models.Channel, error)
}

// TelegramStatus reports the state of the telegram connection.
type TelegramStatus interface {
	GetStatus() telegram.Status
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports the event broker connection.
type BrokerStatus interface {
	IsConnected() bool
}

// LiveFeed serves the websocket event stream.
type LiveFeed interface {
	Handler() http.Handler
}

// EventHistory lists recorded fetches.
type EventHistory interface {
	List(ctx context.Context, filter repository.EventFilter) ([]models.StatsEvent, error)
}
