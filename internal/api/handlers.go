// Package api provides HTTP handlers for the REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-fuego/fuego"

	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/stats"
	"github.com/blockedby/tgstats/internal/telegram"
)

// ============================================================================
// Health
// ============================================================================

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
	}
	if s.deps.Telegram != nil {
		resp.Telegram = string(s.deps.Telegram.GetStatus())
	}
	if s.deps.Database != nil {
		resp.Database = "ok"
		if err := s.deps.Database.Ping(c.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
		}
	}
	if s.deps.Broker != nil {
		resp.Nats = "connected"
		if !s.deps.Broker.IsConnected() {
			resp.Nats = "disconnected"
		}
	}
	return resp, nil
}

// ============================================================================
// Channel statistics
// ============================================================================

func (s *Server) getChannelStats(c fuego.ContextNoBody) (StatsResponse, error) {
	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return StatsResponse{}, err
	}

	resp := StatsResponse{Channel: channelInfo(channel)}
	if channel.Megagroup {
		st, err := s.deps.Stats.SupergroupStatistics(ctx, channel)
		if err != nil {
			return StatsResponse{}, httpError(err)
		}
		resp.Kind = "supergroup"
		resp.Supergroup = &st
		return resp, nil
	}

	st, err := s.deps.Stats.ChannelStatistics(ctx, channel)
	if err != nil {
		return StatsResponse{}, httpError(err)
	}
	resp.Kind = "broadcast"
	resp.Broadcast = &st
	return resp, nil
}

func (s *Server) getGraph(c fuego.ContextNoBody) (GraphResponse, error) {
	token := c.QueryParam("token")
	if token == "" {
		return GraphResponse{}, fuego.BadRequestError{Detail: "token is required"}
	}
	x, err := parseInt64(c.QueryParam("x"))
	if err != nil {
		return GraphResponse{}, fuego.BadRequestError{Detail: "invalid x"}
	}

	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return GraphResponse{}, err
	}

	graph, err := s.deps.Stats.Zoom(ctx, channel, token, x)
	if err != nil {
		return GraphResponse{}, httpError(err)
	}
	return GraphResponse{Channel: channelInfo(channel), Graph: graph}, nil
}

// ============================================================================
// Message and story statistics
// ============================================================================

func (s *Server) getMessageStats(c fuego.ContextNoBody) (PostStatsResponse, error) {
	return s.postStats(c, false)
}

func (s *Server) getStoryStats(c fuego.ContextNoBody) (PostStatsResponse, error) {
	return s.postStats(c, true)
}

func (s *Server) postStats(c fuego.ContextNoBody, story bool) (PostStatsResponse, error) {
	id, err := parsePostID(c.PathParam("id"))
	if err != nil {
		return PostStatsResponse{}, err
	}

	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return PostStatsResponse{}, err
	}

	var (
		post   models.RecentPostID
		result models.MessageStatistics
	)
	if story {
		post = models.StoryPost(channel.Peer(), id)
		result, err = s.deps.Stats.StoryStatistics(ctx, channel, id)
	} else {
		post = models.MessagePost(channel.Peer(), id)
		result, err = s.deps.Stats.MessageStatistics(ctx, channel, id)
	}
	if err != nil {
		return PostStatsResponse{}, httpError(err)
	}
	return PostStatsResponse{Channel: channelInfo(channel), Post: post, Statistics: result}, nil
}

func (s *Server) getMessageForwards(c fuego.ContextNoBody) (ForwardsResponse, error) {
	return s.forwards(c, false)
}

func (s *Server) getStoryForwards(c fuego.ContextNoBody) (ForwardsResponse, error) {
	return s.forwards(c, true)
}

func (s *Server) forwards(c fuego.ContextNoBody, story bool) (ForwardsResponse, error) {
	id, err := parsePostID(c.PathParam("id"))
	if err != nil {
		return ForwardsResponse{}, err
	}
	token, err := parseForwardsToken(c.QueryParam("offset"), c.QueryParam("rate"))
	if err != nil {
		return ForwardsResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return ForwardsResponse{}, err
	}

	post := models.MessagePost(channel.Peer(), id)
	if story {
		post = models.StoryPost(channel.Peer(), id)
	}

	page, err := s.deps.Stats.ForwardsPage(ctx, channel, post, token)
	if err != nil {
		return ForwardsResponse{}, httpError(err)
	}

	resp := ForwardsResponse{Channel: channelInfo(channel), Post: post, Page: page}
	if !page.AllLoaded {
		resp.Next = encodeForwardsToken(page.Token)
	}
	return resp, nil
}

// ============================================================================
// Boosts
// ============================================================================

func (s *Server) getBoostStatus(c fuego.ContextNoBody) (BoostStatusResponse, error) {
	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return BoostStatusResponse{}, err
	}

	status, err := s.deps.Stats.BoostStatus(ctx, channel)
	if err != nil {
		return BoostStatusResponse{}, httpError(err)
	}
	return BoostStatusResponse{Channel: channelInfo(channel), Status: status}, nil
}

func (s *Server) listBoosts(c fuego.ContextNoBody) (BoostsResponse, error) {
	token := models.BoostsToken{Next: c.QueryParam("offset")}
	if raw := c.QueryParam("gifts"); raw != "" {
		gifts, err := strconv.ParseBool(raw)
		if err != nil {
			return BoostsResponse{}, fuego.BadRequestError{Detail: "invalid gifts flag"}
		}
		token.Gifts = gifts
	}

	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return BoostsResponse{}, err
	}

	page, err := s.deps.Stats.BoostsPage(ctx, channel, token)
	if err != nil {
		return BoostsResponse{}, httpError(err)
	}
	return BoostsResponse{Channel: channelInfo(channel), Page: page}, nil
}

// ============================================================================
// History
// ============================================================================

func (s *Server) listEvents(c fuego.ContextNoBody) (EventsResponse, error) {
	filter := repository.EventFilter{Type: models.StatsEventType(c.QueryParam("type"))}
	if raw := c.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return EventsResponse{}, fuego.BadRequestError{Detail: "since must be RFC 3339"}
		}
		filter.Since = since
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > repository.MaxEventsLimit {
			return EventsResponse{}, fuego.BadRequestError{Detail: "invalid limit"}
		}
		filter.Limit = limit
	}

	ctx, cancel := s.requestContext(c.Context())
	defer cancel()

	channel, err := s.channel(ctx, c.PathParam("username"))
	if err != nil {
		return EventsResponse{}, err
	}
	filter.ChannelID = channel.ID

	events, err := s.deps.History.List(ctx, filter)
	if err != nil {
		return EventsResponse{}, fuego.HTTPError{Status: 500, Title: "Internal Server Error", Detail: "failed to list events", Err: err}
	}
	if events == nil {
		events = []models.StatsEvent{}
	}
	return EventsResponse{Channel: channelInfo(channel), Events: events}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

func (s *Server) channel(ctx context.Context, username string) (models.Channel, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return models.Channel{}, fuego.BadRequestError{Detail: "username is required"}
	}
	channel, err := s.channels.resolve(ctx, username)
	if err != nil {
		return models.Channel{}, httpError(err)
	}
	return channel, nil
}

// httpError maps service errors to problem responses.
func httpError(err error) error {
	switch {
	case errors.Is(err, stats.ErrMegagroup), errors.Is(err, stats.ErrBroadcast), errors.Is(err, stats.ErrNoChannel):
		return fuego.BadRequestError{Title: "Not Available", Detail: err.Error(), Err: err}
	case errors.Is(err, stats.ErrBusy):
		return fuego.ConflictError{Title: "Request In Flight", Detail: err.Error(), Err: err}
	case errors.Is(err, telegram.ErrChannelNotFound):
		return fuego.NotFoundError{Title: "Channel Not Found", Detail: err.Error(), Err: err}
	case errors.Is(err, telegram.ErrNotAuthorized), errors.Is(err, stats.ErrClosed):
		return fuego.HTTPError{Status: 503, Title: "Service Unavailable", Detail: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return fuego.HTTPError{Status: 504, Title: "Gateway Timeout", Detail: "telegram did not answer in time", Err: err}
	default:
		return fuego.HTTPError{Status: 502, Title: "Telegram Error", Detail: stats.ErrorType(err), Err: err}
	}
}

func parsePostID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fuego.BadRequestError{Detail: "invalid post id"}
	}
	return id, nil
}

func parseInt64(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// parseForwardsToken reads the continuation of a forwards listing.
func parseForwardsToken(offset, rate string) (models.ForwardsToken, error) {
	token := models.ForwardsToken{Offset: offset}
	if rate != "" {
		r, err := strconv.Atoi(rate)
		if err != nil {
			return token, fmt.Errorf("invalid rate")
		}
		token.Rate = r
	}
	return token, nil
}

func encodeForwardsToken(t models.ForwardsToken) string {
	q := url.Values{}
	if t.Offset != "" {
		q.Set("offset", t.Offset)
	}
	if t.Rate != 0 {
		q.Set("rate", strconv.Itoa(t.Rate))
	}
	return q.Encode()
}
