// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/standings/internal/domain/types"
)

const (
	defaultMaxLimit        = 100
	defaultRefreshInterval = 10 * time.Second
	requestTimeout         = 30 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SnapshotDependencies
	LeaderboardDependencies
	RankDependencies
	RefreshDependencies
	HistoryDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	snapshotHandler    *SnapshotHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	refreshHandler     *RefreshHandler
	historyHandler     *HistoryHandler
	statsHandler       *StatsHandler
	healthHandler      *HealthHandler
	dashboardHandler   *dashboardHandler

	maxLimit        int
	corsOrigins     []string
	refreshInterval time.Duration
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps GET /leaderboard?limit.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithCORSOrigins sets the origins allowed to call the JSON API.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithRefreshInterval tells the dashboard how often the service refreshes.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		maxLimit:        defaultMaxLimit,
		corsOrigins:     []string{"*"},
		refreshInterval: defaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.snapshotHandler = NewSnapshotHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.rankHandler = NewRankHandler(deps)
	s.refreshHandler = NewRefreshHandler(deps)
	s.historyHandler = NewHistoryHandler(deps, s.maxLimit)
	s.statsHandler = NewStatsHandler(deps)
	s.healthHandler = NewHealthHandler()
	s.dashboardHandler = newDashboardHandler(s.refreshInterval)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	r.Get("/dashboard", s.dashboardHandler.HandleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Use(chimw.Timeout(requestTimeout))

		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
		r.Get("/snapshot", MetricsMiddleware(s.snapshotHandler.HandleGetSnapshot, "snapshot"))
		r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Get("/rank/{name}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
		r.Get("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
		r.Get("/history/{id}", MetricsMiddleware(s.historyHandler.HandleGetHistorySnapshot, "history_snapshot"))
		r.Post("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
		r.Post("/scheduler/stop", MetricsMiddleware(s.refreshHandler.HandleStopScheduler, "scheduler_stop"))
		r.Post("/scheduler/start", MetricsMiddleware(s.refreshHandler.HandleStartScheduler, "scheduler_start"))
	})
}

// Router returns a chi router with the standard middleware stack and every
// API route registered.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(CORS(s.corsOrigins))
	s.Register(ctx, r)
	return r
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
