// Package source retrieves the raw leaderboard page.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/okian/standings/pkg/logger"
)

const cacheBustParam = "_ts"

// Fetcher issues cache-bypassing GETs against one leaderboard URL.
type Fetcher struct {
	client   *resty.Client
	target   string
	relay    string
	timeout  time.Duration
	maxBytes int64
	textOnly bool
	now      func() time.Time
	log      logger.Logger
}

// New builds a Fetcher for target.
func New(target string, opts ...Option) (*Fetcher, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}

	f := &Fetcher{
		target:   target,
		timeout:  15 * time.Second,
		maxBytes: 2 << 20,
		textOnly: true,
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = resty.New()
	}
	f.client.SetTimeout(f.timeout).
		SetHeader("User-Agent", "standings/1.0").
		SetHeader("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")
	return f, nil
}

// RequestURL returns the URL fetched at time at: the target with a
// cache-busting query parameter, wrapped in the relay when one is set.
func (f *Fetcher) RequestURL(at time.Time) string {
	u, _ := url.Parse(f.target)
	q := u.Query()
	q.Set(cacheBustParam, strconv.FormatInt(at.UnixNano(), 10))
	u.RawQuery = q.Encode()
	if f.relay == "" {
		return u.String()
	}
	return f.relay + url.QueryEscape(u.String())
}

// Fetch returns the page body as text. Non-2xx responses, oversized bodies and
// empty bodies are errors.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	reqURL := f.RequestURL(f.now())

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		SetHeader("Pragma", "no-cache").
		SetDoNotParseResponse(true).
		Get(reqURL)
	if err != nil {
		return "", fmt.Errorf("source: get: %w", err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	raw, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("source: read body: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return "", fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBytes)
	}

	text := string(raw)
	if f.textOnly && looksLikeHTML(resp.Header().Get("Content-Type"), text) {
		text, err = VisibleText(text)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyBody
	}

	f.log.Debug(ctx, "leaderboard page fetched",
		logger.Int("status", resp.StatusCode()),
		logger.Int("bytes", len(raw)),
		logger.Int("text_chars", len(text)),
	)
	return text, nil
}

func looksLikeHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(body), "<")
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLines      = regexp.MustCompile(`\n(?: ?\n)+`)
)

// VisibleText reduces an HTML document to its visible text. Table cells are
// separated by spaces and block elements end with a newline, so row
// structure survives for the extractor.
func VisibleText(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("source: parse html: %w", err)
	}

	doc.Find("script, style, noscript, template, svg, head").Remove()
	doc.Find("td, th").AppendHtml(" ")
	doc.Find("br, p, div, tr, li, h1, h2, h3, h4, h5, h6, section, article, table").AppendHtml("\n")

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	text := horizontalSpace.ReplaceAllString(root.Text(), " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return strings.TrimSpace(text), nil
}
