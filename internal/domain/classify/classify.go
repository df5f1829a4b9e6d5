// Package classify maps pipeline failures to failure kinds and the messages
// shown to users.
package classify

import (
	"errors"
	"strings"

	"github.com/okian/standings/internal/domain/model"
)

// Kinded is implemented by errors that know their failure kind, such as
// structured error responses from the extraction service. ok is false when the
// error carries no opinion.
type Kinded interface {
	FailureKind() (kind model.FailureKind, ok bool)
}

var (
	quotaMarkers      = []string{"quota"}
	credentialMarkers = []string{"api key", "api_key", "apikey", "credential"}
)

// Classify returns the failure kind of err raised at stage. A structured kind
// anywhere in the chain wins. Fetch failures are always transport failures:
// their text carries the request URL, which may hold relay credentials. For
// other stages the message text is matched case-insensitively, and anything
// unmatched is an extraction failure.
func Classify(stage model.Stage, err error) model.FailureKind {
	if err == nil {
		return ""
	}

	var k Kinded
	if errors.As(err, &k) {
		if kind, ok := k.FailureKind(); ok {
			return kind
		}
	}

	if stage == model.StageFetch {
		return model.FailureTransport
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, quotaMarkers):
		return model.FailureQuota
	case containsAny(msg, credentialMarkers):
		return model.FailureCredential
	default:
		return model.FailureExtraction
	}
}

// Message returns the user-facing text for kind.
func Message(kind model.FailureKind) string {
	switch kind {
	case model.FailureTransport:
		return "Failed to fetch the leaderboard. Retrying on the next refresh."
	case model.FailureQuota:
		return "The extraction service quota has been exceeded. Automatic refresh has stopped."
	case model.FailureCredential:
		return "The extraction service API key is missing or invalid. Automatic refresh has stopped."
	default:
		return "Could not read the leaderboard data. Retrying on the next refresh."
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
