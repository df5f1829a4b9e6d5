package devboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/standings/pkg/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves the board page and the fake extraction endpoint.
type Server struct {
	cfg    Config
	board  *Board
	calls  atomic.Int64
	pages  atomic.Int64
	logger logger.Logger
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config, l logger.Logger) *Server {
	cfg = cfg.withDefaults()
	if l == nil {
		l = logger.Discard()
	}
	return &Server{cfg: cfg, board: NewBoard(cfg), logger: l}
}

// Board exposes the underlying board.
func (s *Server) Board() *Board { return s.board }

// Calls returns the number of generateContent calls received.
func (s *Server) Calls() int64 { return s.calls.Load() }

// Handler returns the HTTP routes:
//
//	GET  /leaderboard                             -> HTML board
//	POST /v1beta/models/{model}:generateContent   -> fake extraction
//	GET  /healthz                                 -> ok
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/healthz"))
	r.Get("/leaderboard", s.handlePage)
	r.Post("/v1beta/models/*", s.handleGenerate)
	return r
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.AdvanceEvery == 0 && s.pages.Add(1) > 1 {
		s.board.Advance()
	}
	var buf bytes.Buffer
	if err := RenderPage(&buf, s.board.Round(), s.board.Rows()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if s.cfg.AdvanceEvery > 0 {
		go s.advanceLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "dev board listening",
			logger.String("addr", s.cfg.Addr),
			logger.Int("players", s.cfg.Players),
			logger.Int64("quota_after", s.cfg.QuotaAfter),
			logger.Bool("api_key_required", s.cfg.APIKey != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("devboard: serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("devboard: shutdown: %w", err)
	}
	return nil
}

func (s *Server) advanceLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AdvanceEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.board.Advance()
		}
	}
}
