package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a swagger handler", t, func() {
		ctx := context.Background()
		r := chi.NewRouter()

		convey.Convey("When registering the swagger handler", func() {
			Register(ctx, r)

			convey.Convey("Then it should handle /openapi.yaml route", func() {
				req := httptest.NewRequest("GET", "/openapi.yaml", http.NoBody)
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(w.Body.Len(), convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("And it should handle /api-docs route", func() {
				req := httptest.NewRequest("GET", "/api-docs", http.NoBody)
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "Standings API Docs")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, redocScriptURL)
			})
		})
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		var doc struct {
			OpenAPI string                            `yaml:"openapi"`
			Paths   map[string]map[string]interface{} `yaml:"paths"`
		}
		err := yaml.Unmarshal(OpenAPI, &doc)

		convey.Convey("Then it parses and documents every route", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(doc.OpenAPI, convey.ShouldStartWith, "3.")
			for path, method := range map[string]string{
				"/snapshot":        "get",
				"/leaderboard":     "get",
				"/rank/{name}":     "get",
				"/refresh":         "post",
				"/scheduler/stop":  "post",
				"/scheduler/start": "post",
				"/history":         "get",
				"/history/{id}":    "get",
				"/stats":           "get",
				"/healthz":         "get",
				"/dashboard":       "get",
			} {
				convey.So(doc.Paths, convey.ShouldContainKey, path)
				convey.So(doc.Paths[path], convey.ShouldContainKey, method)
			}
		})
	})
}

func TestSwaggerHandlerWithNilRouter(t *testing.T) {
	convey.Convey("Given a nil router", t, func() {
		convey.Convey("Then registering panics", func() {
			convey.So(func() {
				Register(context.Background(), nil)
			}, convey.ShouldPanic)
		})
	})
}
