package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/okian/standings/internal/domain/classify"
	"github.com/okian/standings/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

type fakeService struct {
	status atomic.Int32
	body   atomic.Value
	last   atomic.Value
	path   atomic.Value
	key    atomic.Value
}

func newFakeService(status int, body string) (*fakeService, *httptest.Server) {
	f := &fakeService{}
	f.status.Store(int32(status))
	f.body.Store(body)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.last.Store(string(b))
		f.path.Store(r.URL.Path)
		f.key.Store(r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(f.status.Load()))
		_, _ = io.WriteString(w, f.body.Load().(string))
	}))
	return f, srv
}

func TestExtract(t *testing.T) {
	Convey("Given an extraction service", t, func() {
		ctx := context.Background()
		fake, srv := newFakeService(http.StatusOK, candidateBody(`[{"name":" Ada ","score":110},{"name":"Grace","score":90.5}]`))
		defer srv.Close()

		c := New(WithEndpoint(srv.URL+"/v1beta/"), WithModel("test-model"), WithAPIKey("k-1"), WithMaxInputChars(10))

		Convey("When extracting page text", func() {
			recs, err := c.Extract(ctx, "Ada 110 Grace 90.5 and a lot more text")

			Convey("Then records come back trimmed and in order", func() {
				So(err, ShouldBeNil)
				want := []model.Record{{Name: "Ada", Score: 110}, {Name: "Grace", Score: 90.5}}
				So(cmp.Diff(want, recs), ShouldBeEmpty)
			})

			Convey("And the request targets generateContent with the key header", func() {
				So(fake.path.Load(), ShouldEqual, "/v1beta/models/test-model:generateContent")
				So(fake.key.Load(), ShouldEqual, "k-1")
			})

			Convey("And the request carries the schema and truncated text", func() {
				req := fake.last.Load().(string)
				So(gjson.Get(req, "generationConfig.responseMimeType").String(), ShouldEqual, "application/json")
				So(gjson.Get(req, "generationConfig.responseSchema.type").String(), ShouldEqual, "ARRAY")
				So(gjson.Get(req, "generationConfig.responseSchema.items.properties.score.type").String(), ShouldEqual, "NUMBER")
				So(gjson.Get(req, "contents.0.parts.0.text").String(), ShouldEqual, Instruction)
				So(gjson.Get(req, "contents.0.parts.1.text").String(), ShouldEqual, "Ada 110 Gr")
			})
		})

		Convey("When the service returns an empty array", func() {
			fake.body.Store(candidateBody(`[]`))
			_, err := c.Extract(ctx, "board")

			Convey("Then it is an empty output extraction failure", func() {
				So(errors.Is(err, ErrEmptyOutput), ShouldBeTrue)
				So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureExtraction)
			})
		})

		Convey("When the service returns fenced json with bad rows", func() {
			fake.body.Store(candidateBody("```json\n[{\"name\":\"\",\"score\":1},{\"name\":\"Linus\",\"score\":\"1,250\"},{\"name\":\"NoScore\"}]\n```"))
			recs, err := c.Extract(ctx, "board")

			Convey("Then invalid rows are dropped and numeric strings accepted", func() {
				So(err, ShouldBeNil)
				So(cmp.Diff([]model.Record{{Name: "Linus", Score: 1250}}, recs), ShouldBeEmpty)
			})
		})

		Convey("When the service returns non-finite scores", func() {
			fake.body.Store(candidateBody(`[{"name":"A","score":"NaN"},{"name":"B","score":"Infinity"},{"name":"C","score":"-Inf"},` +
				`{"name":"D","score":1e999},{"name":"E","score":5}]`))
			recs, err := c.Extract(ctx, "board")

			Convey("Then those rows are dropped as invalid", func() {
				So(err, ShouldBeNil)
				So(cmp.Diff([]model.Record{{Name: "E", Score: 5}}, recs), ShouldBeEmpty)
			})
		})

		Convey("When every score is non-finite", func() {
			fake.body.Store(candidateBody(`[{"name":"A","score":"nan"},{"name":"B","score":"+Inf"}]`))
			_, err := c.Extract(ctx, "board")

			Convey("Then it is an empty output extraction failure", func() {
				So(errors.Is(err, ErrEmptyOutput), ShouldBeTrue)
			})
		})

		Convey("When the service returns prose", func() {
			fake.body.Store(candidateBody("Sorry, I cannot help with that."))
			_, err := c.Extract(ctx, "board")

			Convey("Then it is malformed output", func() {
				So(errors.Is(err, ErrMalformedOutput), ShouldBeTrue)
			})
		})

		Convey("When the service returns an object instead of an array", func() {
			fake.body.Store(candidateBody(`{"name":"Ada","score":1}`))
			_, err := c.Extract(ctx, "board")

			Convey("Then it is malformed output", func() {
				So(errors.Is(err, ErrMalformedOutput), ShouldBeTrue)
			})
		})

		Convey("When the prompt is blocked", func() {
			fake.body.Store(`{"promptFeedback":{"blockReason":"SAFETY"}}`)
			_, err := c.Extract(ctx, "board")

			Convey("Then it is a blocked extraction failure", func() {
				So(errors.Is(err, ErrBlocked), ShouldBeTrue)
				So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureExtraction)
			})
		})

		Convey("When the quota is exhausted", func() {
			fake.status.Store(http.StatusTooManyRequests)
			fake.body.Store(`{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`)
			_, err := c.Extract(ctx, "board")

			Convey("Then a structured quota error is returned", func() {
				var apiErr *APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Code, ShouldEqual, "RESOURCE_EXHAUSTED")
				So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureQuota)
			})
		})

		Convey("When a per-minute rate limit is hit without a quota message", func() {
			fake.status.Store(http.StatusTooManyRequests)
			fake.body.Store(`{"error":{"code":429,"message":"Too many requests, slow down.","status":"RESOURCE_EXHAUSTED"}}`)
			_, err := c.Extract(ctx, "board")

			Convey("Then it is a retried extraction failure", func() {
				var apiErr *APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				_, ok := apiErr.FailureKind()
				So(ok, ShouldBeFalse)
				kind := classify.Classify(model.StageExtract, err)
				So(kind, ShouldEqual, model.FailureExtraction)
				So(kind.Terminal(), ShouldBeFalse)
			})
		})

		Convey("When a bare 429 carries no structured status", func() {
			fake.status.Store(http.StatusTooManyRequests)
			fake.body.Store("rate limited")
			_, err := c.Extract(ctx, "board")

			Convey("Then the message text decides", func() {
				So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureExtraction)
			})
		})

		Convey("When the key is rejected", func() {
			fake.status.Store(http.StatusBadRequest)
			fake.body.Store(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT",` +
				`"details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID"}]}}`)
			_, err := c.Extract(ctx, "board")

			Convey("Then it classifies as a credential failure", func() {
				var apiErr *APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Reason, ShouldEqual, "API_KEY_INVALID")
				So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureCredential)
			})
		})

		Convey("When the service fails with a plain body", func() {
			fake.status.Store(http.StatusServiceUnavailable)
			fake.body.Store("upstream overloaded")
			_, err := c.Extract(ctx, "board")

			Convey("Then the error keeps the body and falls back to an extraction failure", func() {
				So(err.Error(), ShouldContainSubstring, "upstream overloaded")
				So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureExtraction)
			})
		})
	})

	Convey("Given a client without an API key", t, func() {
		c := New()
		_, err := c.Extract(context.Background(), "board")

		Convey("Then it fails before calling out and classifies as credential", func() {
			So(errors.Is(err, ErrMissingAPIKey), ShouldBeTrue)
			So(classify.Classify(model.StageExtract, err), ShouldEqual, model.FailureCredential)
		})
	})
}

func TestHelpers(t *testing.T) {
	Convey("Given fenced payloads", t, func() {
		So(stripFences("```json\n[1]\n```"), ShouldEqual, "[1]")
		So(stripFences("```\n[2]```"), ShouldEqual, "[2]")
		So(stripFences(" [3] "), ShouldEqual, "[3]")
	})

	Convey("Given multi-byte text", t, func() {
		So(truncate("héllo", 2), ShouldEqual, "hé")
		So(truncate("abc", 5), ShouldEqual, "abc")
		So(utf8Safe(truncate(strings.Repeat("ü", 10), 3)), ShouldBeTrue)
	})
}

func utf8Safe(s string) bool {
	return strings.ToValidUTF8(s, "?") == s
}
