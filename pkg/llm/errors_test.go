package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/pkg/errors"
)

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != 0 {
		t.Errorf("Expected 0 for nil error, got %d", got)
	}
}

func TestClassify(t *testing.T) {
	var decoded map[string]any
	parseErr := json.Unmarshal([]byte("{not json"), &decoded)
	if parseErr == nil {
		t.Fatal("Expected json.Unmarshal to fail")
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"cancelled context", context.Canceled, CodeCancelled},
		{"wrapped cancellation", errors.Wrap(context.Canceled, "request aborted"), CodeCancelled},
		{"deadline exceeded", context.DeadlineExceeded, CodeNetwork},
		{"http status", &StatusError{Code: 404, Message: "model not found"}, 404},
		{"wrapped http status", fmt.Errorf("chat request: %w", &StatusError{Code: 429}), 429},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: io.EOF}, CodeNetwork},
		{"truncated body", io.ErrUnexpectedEOF, CodeNetwork},
		{"malformed stream", errors.Wrap(ErrMalformedStream, "decoding chunk"), CodeStreamParse},
		{"json syntax error", parseErr, CodeStreamParse},
		{"anything else", errors.New("boom"), CodeUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Expected code %d, got %d", tt.want, got)
			}
		})
	}
}

func TestClassifyCancellationWinsOverStatus(t *testing.T) {
	err := errors.Wrap(context.Canceled, (&StatusError{Code: 500}).Error())
	if got := Classify(err); got != CodeCancelled {
		t.Errorf("Expected CodeCancelled, got %d", got)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	withMessage := &StatusError{Code: 429, Message: "rate limited"}
	if got := withMessage.Error(); got != "api error: status 429: rate limited" {
		t.Errorf("Unexpected error text: %q", got)
	}

	bare := &StatusError{Code: 502}
	if got := bare.Error(); got != "api error: status 502" {
		t.Errorf("Unexpected error text: %q", got)
	}
}
