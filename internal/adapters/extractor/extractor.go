// Package extractor turns unstructured leaderboard text into records using a
// Gemini-compatible generateContent endpoint.
package extractor

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/pkg/logger"
)

// Instruction is the fixed extraction prompt sent ahead of the page text.
const Instruction = "Extract every leaderboard row from the text below. " +
	"Return a JSON array of objects with a string field \"name\" and a numeric field \"score\". " +
	"Keep the rows in the order they appear. Do not invent rows. Return [] if there are none."

// Client calls the extraction service.
type Client struct {
	http          *resty.Client
	endpoint      string
	model         string
	apiKey        string
	timeout       time.Duration
	maxInputChars int
	validate      *validator.Validate
	log           logger.Logger
}

// New builds a Client with defaults for the public Gemini API.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:      "https://generativelanguage.googleapis.com/v1beta",
		model:         "gemini-2.5-flash",
		timeout:       30 * time.Second,
		maxInputChars: 60_000,
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = resty.New()
	}
	c.http.SetTimeout(c.timeout)

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	c.validate = v
	return c
}

// candidate is one row as returned by the service, before validation.
type candidate struct {
	Name  string   `json:"name" validate:"required,max=200"`
	Score *float64 `json:"score" validate:"required"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type       string            `json:"type"`
	Items      *schema           `json:"items,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	ResponseSchema   schema  `json:"responseSchema"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// recordSchema is the fixed output schema: [{name: string, score: number}].
var recordSchema = schema{ //nolint:gochecknoglobals // immutable request schema
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"name":  {Type: "STRING"},
			"score": {Type: "NUMBER"},
		},
		Required: []string{"name", "score"},
	},
}

// Extract sends text to the service and returns the extracted records in
// service order. Rows that fail validation are dropped; no valid rows at all
// is ErrEmptyOutput.
func (c *Client) Extract(ctx context.Context, text string) ([]model.Record, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	text = truncate(text, c.maxInputChars)
	req := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: Instruction}, {Text: text}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   recordSchema,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(req).
		Post(c.url())
	if err != nil {
		return nil, fmt.Errorf("extractor: post: %w", err)
	}
	if resp.IsError() {
		return nil, parseAPIError(resp.StatusCode(), resp.Body())
	}

	return c.parseRecords(ctx, resp.Body())
}

func (c *Client) url() string {
	return fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.endpoint, "/"), c.model)
}

func (c *Client) parseRecords(ctx context.Context, body []byte) ([]model.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not json", ErrMalformedOutput)
	}
	if reason := gjson.GetBytes(body, "promptFeedback.blockReason"); reason.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, reason.String())
	}

	var sb strings.Builder
	for _, t := range gjson.GetBytes(body, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(t.String())
	}
	payload := stripFences(sb.String())
	if payload == "" {
		return nil, ErrEmptyOutput
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: candidate text is not json", ErrMalformedOutput)
	}
	rows := gjson.Parse(payload)
	if !rows.IsArray() {
		return nil, fmt.Errorf("%w: expected an array, got %s", ErrMalformedOutput, rows.Type)
	}

	records := make([]model.Record, 0, len(rows.Array()))
	dropped := 0
	for _, row := range rows.Array() {
		cand := candidate{Name: strings.TrimSpace(row.Get("name").String()), Score: score(row.Get("score"))}
		if err := c.validate.Struct(cand); err != nil {
			dropped++
			continue
		}
		records = append(records, model.Record{Name: cand.Name, Score: *cand.Score})
	}
	if dropped > 0 {
		c.log.Warn(ctx, "dropped invalid extracted rows", logger.Int("dropped", dropped), logger.Int("kept", len(records)))
	}
	if len(records) == 0 {
		return nil, ErrEmptyOutput
	}
	return records, nil
}

// score reads a numeric score. Numeric strings such as "1,250" are accepted;
// NaN and infinities are not.
func score(v gjson.Result) *float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return nil
		}
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseAPIError(status int, body []byte) error {
	e := &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	if gjson.ValidBytes(body) {
		r := gjson.ParseBytes(body)
		if msg := r.Get("error.message"); msg.Exists() {
			e.Message = msg.String()
		}
		e.Code = r.Get("error.status").String()
		for _, reason := range r.Get("error.details.#.reason").Array() {
			if reason.String() != "" {
				e.Reason = reason.String()
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = "no error message"
	}
	return e
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
