package source

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/standings/pkg/logger"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRelay routes requests through a relay: the escaped target URL is
// appended to prefix, e.g. "https://relay.example/raw?url=".
func WithRelay(prefix string) Option {
	return func(f *Fetcher) { f.relay = prefix }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithTextOnly strips HTML markup down to visible text before returning.
func WithTextOnly(on bool) Option {
	return func(f *Fetcher) { f.textOnly = on }
}

// WithClient replaces the resty client, mostly for tests.
func WithClient(c *resty.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithClock overrides the cache-busting timestamp source.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}
