package api

import (
	"github.com/blockedby/tgstats/internal/models"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status" example:"ok" description:"Health status"`
	Version  string `json:"version" example:"dev" description:"Application version"`
	Telegram string `json:"telegram,omitempty" example:"READY" description:"Telegram client status"`
	Database string `json:"database,omitempty" example:"ok" description:"Database reachability"`
	Nats     string `json:"nats,omitempty" example:"connected" description:"Event broker connection"`
}

// ChannelInfo describes the resolved channel a response refers to.
type ChannelInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Title     string `json:"title"`
	Megagroup bool   `json:"megagroup"`
}

// StatsResponse carries broadcast or supergroup statistics, depending on the channel kind.
type StatsResponse struct {
	Channel    ChannelInfo                  `json:"channel"`
	Kind       string                       `json:"kind" example:"broadcast" description:"broadcast or supergroup"`
	Broadcast  *models.ChannelStatistics    `json:"broadcast,omitempty"`
	Supergroup *models.SupergroupStatistics `json:"supergroup,omitempty"`
}

// GraphResponse is a zoomed or lazily loaded graph.
type GraphResponse struct {
	Channel ChannelInfo             `json:"channel"`
	Graph   models.StatisticalGraph `json:"graph"`
}

// PostStatsResponse carries message or story statistics.
type PostStatsResponse struct {
	Channel    ChannelInfo              `json:"channel"`
	Post       models.RecentPostID      `json:"post"`
	Statistics models.MessageStatistics `json:"statistics"`
}

// ForwardsResponse is one page of public forwards.
type ForwardsResponse struct {
	Channel ChannelInfo                `json:"channel"`
	Post    models.RecentPostID        `json:"post"`
	Page    models.PublicForwardsSlice `json:"page"`
	// Next is the query string fetching the following page, empty once all are loaded.
	Next string `json:"next,omitempty"`
}

// BoostStatusResponse is the boost program state of a channel.
type BoostStatusResponse struct {
	Channel ChannelInfo        `json:"channel"`
	Status  models.BoostStatus `json:"status"`
}

// BoostsResponse is one page of boosts.
type BoostsResponse struct {
	Channel ChannelInfo            `json:"channel"`
	Page    models.BoostsListSlice `json:"page"`
}

// EventsResponse lists recorded events of a channel.
type EventsResponse struct {
	Channel ChannelInfo         `json:"channel"`
	Events  []models.StatsEvent `json:"events"`
}

func channelInfo(c models.Channel) ChannelInfo {
	return ChannelInfo{
		ID:        c.ID,
		Username:  c.Username,
		Title:     c.Title,
		Megagroup: c.Megagroup,
	}
}
