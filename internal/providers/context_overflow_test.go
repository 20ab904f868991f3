package providers

import (
	"errors"
	"testing"
)

func TestIsContextOverflow(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "anthropic-style 400 context_length_exceeded",
			err:  &HTTPError{Status: 400, Body: `{"error":{"type":"invalid_request_error","message":"context_length_exceeded"}}`},
			want: true,
		},
		{
			name: "openai-style 400 maximum context length",
			err:  &HTTPError{Status: 400, Body: "This model's maximum context length is 128000 tokens"},
			want: true,
		},
		{
			name: "413 prompt too long",
			err:  &HTTPError{Status: 413, Body: "prompt is too long for this model"},
			want: true,
		},
		{
			name: "400 but unrelated body",
			err:  &HTTPError{Status: 400, Body: "missing required field"},
			want: false,
		},
		{
			name: "429 rate limit, not overflow",
			err:  &HTTPError{Status: 429, Body: "context window exceeded"},
			want: false,
		},
		{
			name: "non-HTTPError",
			err:  errors.New("network timeout"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContextOverflow(tt.err); got != tt.want {
				t.Errorf("IsContextOverflow(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
