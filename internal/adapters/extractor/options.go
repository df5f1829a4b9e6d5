package extractor

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/standings/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the service base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithModel sets the model name.
func WithModel(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.model = name
		}
	}
}

// WithAPIKey sets the credential sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxInputChars truncates page text longer than n characters.
func WithMaxInputChars(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxInputChars = n
		}
	}
}

// WithHTTPClient replaces the resty client.
func WithHTTPClient(rc *resty.Client) Option {
	return func(c *Client) {
		if rc != nil {
			c.http = rc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
