package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Error classes recorded alongside failed runs.
const (
	ClassTransient = "transient"
	ClassPermanent = "permanent"
)

// TransientError marks a failure that may succeed on retry: 408, 429 and 5xx
// responses, network timeouts, resets.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable. statusCode may be zero.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// HTTPStatusError turns a non-2xx response into an error, marking it
// transient when the status is retryable. body is truncated to 200 bytes.
func HTTPStatusError(service string, statusCode int, body []byte) error {
	if len(body) > 200 {
		body = body[:200]
	}
	err := eris.New(fmt.Sprintf("%s: status %d: %s", service, statusCode, strings.TrimSpace(string(body))))
	if IsTransientHTTPStatus(statusCode) {
		return NewTransientError(err, statusCode)
	}
	return err
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err, or anything it wraps, looks retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a response status is worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// Classify labels err as ClassTransient or ClassPermanent. Nil is "".
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTransient(err):
		return ClassTransient
	default:
		return ClassPermanent
	}
}
