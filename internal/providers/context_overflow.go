package providers

import (
	"errors"
	"strings"
)

// contextOverflowMarkers are substrings providers put in the error body
// when a request is rejected for exceeding the model's context window.
// Not an exhaustive list — extend as new providers are wired in.
var contextOverflowMarkers = []string{
	"context_length_exceeded",
	"maximum context length",
	"context window",
	"prompt is too long",
	"input length and `max_tokens`",
	"too many tokens",
}

// IsContextOverflow reports whether err is a provider rejection for
// exceeding the model's context window. Context overflow is a property
// of the conversation, not the credential, so ClassifyError/RecordFailure
// never bench a profile for it — the runtime compacts and retries instead.
func IsContextOverflow(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.Status != 400 && httpErr.Status != 413 {
		return false
	}
	body := strings.ToLower(httpErr.Body)
	for _, marker := range contextOverflowMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
