package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/standings/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RefreshIntervalMS, convey.ShouldEqual, 10_000)
				convey.So(cfg.ExtractorModel, convey.ShouldEqual, "gemini-2.5-flash")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("STANDINGS_ADDR", ":8080")
			_ = os.Setenv("STANDINGS_REFRESH_INTERVAL_MS", "2500")
			_ = os.Setenv("STANDINGS_SOURCE_TEXT_ONLY", "false")
			_ = os.Setenv("STANDINGS_EXTRACTOR_API_KEY", "secret")
			_ = os.Setenv("STANDINGS_CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RefreshInterval(), convey.ShouldEqual, 2500*time.Millisecond)
				convey.So(cfg.SourceTextOnly, convey.ShouldBeFalse)
				convey.So(cfg.ExtractorAPIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"http://a.test", "http://b.test"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# local board
addr: ":9090"
source_url: "http://localhost:9191/board"
history_path: "/tmp/standings.db"
history_retention: 20
cors_allowed_origins:
  - "http://localhost:3000"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STANDINGS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.SourceURL, convey.ShouldEqual, "http://localhost:9191/board")
				convey.So(cfg.HistoryEnabled(), convey.ShouldBeTrue)
				convey.So(cfg.HistoryRetention, convey.ShouldEqual, 20)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"http://localhost:3000"})
				convey.So(cfg.TriggerQueueSize, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nrefresh_interval_ms: 5000\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STANDINGS_CONFIG", tmpFile)
			_ = os.Setenv("STANDINGS_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RefreshIntervalMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STANDINGS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("STANDINGS_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("STANDINGS_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("STANDINGS_REFRESH_INTERVAL_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the refresh interval is too small", func() {
			_ = os.Setenv("STANDINGS_REFRESH_INTERVAL_MS", "5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"STANDINGS_CONFIG",
		"STANDINGS_ADDR",
		"STANDINGS_REFRESH_INTERVAL_MS",
		"STANDINGS_SOURCE_TEXT_ONLY",
		"STANDINGS_EXTRACTOR_API_KEY",
		"STANDINGS_CORS_ALLOWED_ORIGINS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "standings-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
