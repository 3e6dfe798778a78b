package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

// Stable result codes for terminal request failures. Negative values are
// client-side conditions; positive values carry the HTTP status the
// backend answered with.
const (
	CodeCancelled   = -1
	CodeNetwork     = -2
	CodeUnexpected  = -3
	CodeStreamParse = -4
)

// ErrMalformedStream marks payloads the stream decoder could not parse.
var ErrMalformedStream = errors.New("malformed stream payload")

// StatusError is a request the backend answered with a non-success HTTP
// status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Code)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Code, e.Message)
}

// Classify maps an error from a chat request to its stable result code.
// nil maps to 0. A cancelled context is reported as CodeCancelled even
// when the backend surfaces it as some other failure first.
func Classify(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, context.Canceled) {
		return CodeCancelled
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}

	if errors.Is(err, ErrMalformedStream) {
		return CodeStreamParse
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return CodeStreamParse
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return CodeStreamParse
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeNetwork
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return CodeNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CodeNetwork
	}

	return CodeUnexpected
}
