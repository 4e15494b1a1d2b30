package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"
)

const channelCacheTTL = 10 * time.Minute

// Server represents the Fuego API server.
type Server struct {
	fuego          *fuego.Server
	deps           *Dependencies
	channels       *channelCache
	requestTimeout time.Duration
	version        string
}

// Dependencies contains all service dependencies.
type Dependencies struct {
	Stats    StatsService
	Resolver ChannelResolver
	Telegram TelegramStatus
	Database Pinger
	Broker   BrokerStatus
	Feed     LiveFeed
	History  EventHistory
}

// Config holds API server configuration.
type Config struct {
	Port           int
	Title          string
	Description    string
	Version        string
	RequestTimeout time.Duration
}

// NewServer creates a new Fuego API server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				JSONFilePath:     "openapi.json",
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg.Title, cfg.Description)
				},
			}),
		),
	)

	// Set OpenAPI info
	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	// Add Chi middleware (Fuego is net/http compatible)
	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Logger)
	fuego.Use(s, middleware.Recoverer)
	fuego.Use(s, cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	srv := &Server{
		fuego:          s,
		deps:           deps,
		channels:       newChannelCache(deps.Resolver, channelCacheTTL),
		requestTimeout: cfg.RequestTimeout,
		version:        cfg.Version,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	// Health check
	fuego.Get(s.fuego, "/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API, the telegram client and the database"),
		option.Tags("System"),
	)

	channels := fuego.Group(s.fuego, "/api/v1/channels/{username}",
		option.Tags("Statistics"),
	)

	fuego.Get(channels, "/stats", s.getChannelStats,
		option.Summary("Get Channel Statistics"),
		option.Description("Returns broadcast or supergroup statistics, depending on the channel kind"),
	)

	fuego.Get(channels, "/stats/graph", s.getGraph,
		option.Summary("Load Graph"),
		option.Description("Loads a lazily delivered graph or zooms into a point of one"),
		option.Query("token", "Graph token from a statistics response"),
		option.Query("x", "Point to zoom into, milliseconds since epoch (0 = load as is)"),
	)

	fuego.Get(channels, "/messages/{id}/stats", s.getMessageStats,
		option.Summary("Get Message Statistics"),
		option.Description("Returns view graphs and counters of a channel post"),
		option.Tags("Posts"),
	)

	fuego.Get(channels, "/messages/{id}/forwards", s.getMessageForwards,
		option.Summary("List Message Forwards"),
		option.Description("Returns one page of public forwards of a channel post"),
		option.Query("offset", "Continuation offset from the previous page"),
		option.Query("rate", "Rate reported by the previous page; a repeated rate ends the listing"),
		option.Tags("Posts"),
	)

	fuego.Get(channels, "/stories/{id}/stats", s.getStoryStats,
		option.Summary("Get Story Statistics"),
		option.Description("Returns view graphs and counters of a channel story"),
		option.Tags("Posts"),
	)

	fuego.Get(channels, "/stories/{id}/forwards", s.getStoryForwards,
		option.Summary("List Story Forwards"),
		option.Description("Returns one page of public forwards and reposts of a channel story"),
		option.Query("offset", "Continuation offset from the previous page"),
		option.Tags("Posts"),
	)

	fuego.Get(channels, "/boosts", s.getBoostStatus,
		option.Summary("Get Boost Status"),
		option.Description("Returns the boost level, counters, prepaid giveaways and the first pages of boosts and gifts"),
		option.Tags("Boosts"),
	)

	fuego.Get(channels, "/boosts/list", s.listBoosts,
		option.Summary("List Boosts"),
		option.Description("Returns one page of boosts or gift boosts"),
		option.Query("gifts", "List gift boosts instead of regular ones"),
		option.Query("offset", "Continuation offset from the previous page"),
		option.Tags("Boosts"),
	)

	if s.deps.History != nil {
		fuego.Get(channels, "/events", s.listEvents,
			option.Summary("List Recorded Events"),
			option.Description("Returns the most recent completed fetches of a channel, newest first"),
			option.Query("type", "Only events of this type"),
			option.Query("since", "RFC 3339 lower bound"),
			option.Query("limit", "Page size, 1..500"),
			option.Tags("History"),
		)
	}

	if s.deps.Feed != nil {
		s.fuego.Mux.Handle("GET /ws", s.deps.Feed.Handler())
	}
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.fuego.Run()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.fuego.Shutdown(ctx)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.fuego.Mux
}
