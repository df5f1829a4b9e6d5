package extractor

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/standings/internal/domain/model"
)

// Sentinel errors for the extractor.
var (
	ErrMissingAPIKey   = errors.New("extractor: api key is not configured")
	ErrEmptyOutput     = errors.New("extractor: empty output")
	ErrMalformedOutput = errors.New("extractor: malformed output")
	ErrBlocked         = errors.New("extractor: prompt blocked")
)

// APIError is a structured error response from the extraction service.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Code is the service status string, e.g. RESOURCE_EXHAUSTED.
	Code string
	// Reason is the first detail reason, e.g. API_KEY_INVALID.
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("extractor: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("extractor: status %d %s: %s", e.Status, e.Code, e.Message)
}

// FailureKind maps the service status to a failure kind. Only an exhausted
// quota is a quota failure; a bare 429 rate limit and unknown statuses return
// ok=false so the message text decides.
func (e *APIError) FailureKind() (model.FailureKind, bool) {
	switch {
	case e.Code == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(e.Message), "quota"):
		return model.FailureQuota, true
	case e.Code == "UNAUTHENTICATED" || e.Code == "PERMISSION_DENIED" || e.Reason == "API_KEY_INVALID":
		return model.FailureCredential, true
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return model.FailureCredential, true
	default:
		return "", false
	}
}
