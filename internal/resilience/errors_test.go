package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("x"), 503), true},
		{"wrapped explicit", eris.Wrap(NewTransientError(errors.New("x"), 429), "jina: search"), true},
		{"net timeout", fmt.Errorf("get: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"message", errors.New("read tcp: connection reset by peer"), true},
		{"permanent", errors.New("invalid api key"), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestHTTPStatusError(t *testing.T) {
	t.Parallel()

	err := HTTPStatusError("places", 503, []byte("unavailable"))
	assert.True(t, IsTransient(err))
	var te *TransientError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.StatusCode)
	assert.Contains(t, err.Error(), "places: status 503: unavailable")

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	err = HTTPStatusError("jina", 401, long)
	assert.False(t, IsTransient(err))
	assert.Less(t, len(err.Error()), 260)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Classify(nil))
	assert.Equal(t, ClassTransient, Classify(NewTransientError(errors.New("x"), 0)))
	assert.Equal(t, ClassPermanent, Classify(errors.New("x")))
}
