package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given STANDINGS_ environment overrides", t, func() {
		t.Setenv("STANDINGS_ADDR", ":8181")
		t.Setenv("STANDINGS_REFRESH_INTERVAL_MS", "2500")
		t.Setenv("STANDINGS_MAX_LEADERBOARD_LIMIT", "25")

		convey.Convey("When the configuration is loaded", func() {
			cfg, err := config.Load(context.Background())

			convey.Convey("Then the overrides are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				convey.So(cfg.RefreshInterval(), convey.ShouldEqual, 2500*time.Millisecond)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 25)
			})
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		t.Setenv("STANDINGS_ADDR", "")

		convey.Convey("Then loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When history is disabled", func() {
			svc, cleanup, err := buildService(ctx, cfg, logger.Discard())
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()

			convey.Convey("Then the service reports history off", func() {
				stats := svc.GetStats()
				convey.So(stats["historyEnabled"], convey.ShouldBeFalse)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})
		})

		convey.Convey("When history points at a temp file", func() {
			cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")
			svc, cleanup, err := buildService(ctx, cfg, logger.Discard())
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()

			convey.Convey("Then the service reports history on", func() {
				convey.So(svc.GetStats()["historyEnabled"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the source URL is malformed", func() {
			cfg.SourceURL = "://broken"

			convey.Convey("Then building fails", func() {
				_, _, err := buildService(ctx, cfg, logger.Discard())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler built from defaults", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc, cleanup, err := buildService(ctx, cfg, logger.Discard())
		convey.So(err, convey.ShouldBeNil)
		defer cleanup()

		ts := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer ts.Close()

		for _, path := range []string{"/healthz", "/snapshot", "/api-docs", "/openapi.yaml", "/dashboard"} {
			convey.Convey("Then GET "+path+" answers 200", func() {
				resp, err := http.Get(ts.URL + path)
				convey.So(err, convey.ShouldBeNil)
				defer resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		}

		convey.Convey("Then POST /refresh before start answers 503", func() {
			resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When its context is already done", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns without panicking", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
