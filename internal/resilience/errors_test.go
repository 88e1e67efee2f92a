package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("rate limited"), 429)
	wrapped := fmt.Errorf("hubspot: create company: %w", inner)
	assert.True(t, IsTransient(wrapped))
}

func TestIsTransient_NilError(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_RegularError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("invalid input: missing field")))
}

func TestIsTransient_ConnectionErrors(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)))
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	assert.True(t, IsTransient(err))
}

func TestIsTransient_DeadlineExceeded(t *testing.T) {
	err := fmt.Errorf("webhook: post: %w", context.DeadlineExceeded)
	assert.True(t, IsTransient(err))
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"Client.Timeout exceeded while awaiting headers",
	}
	for _, p := range patterns {
		assert.True(t, IsTransient(errors.New(p)), "expected %q to be transient", p)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 405, 409, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestNewStatusError_Transient(t *testing.T) {
	err := NewStatusError(503, "try later")
	assert.True(t, IsTransient(err))
	assert.Equal(t, 503, StatusCode(err))
	assert.Equal(t, "unexpected status 503: try later", err.Error())
}

func TestNewStatusError_Permanent(t *testing.T) {
	err := NewStatusError(401, "")
	assert.False(t, IsTransient(err))
	assert.Equal(t, 401, StatusCode(err))
	assert.Equal(t, "unexpected status 401", err.Error())

	var se *StatusError
	require.True(t, errors.As(err, &se))
}

func TestNewStatusError_TruncatesBody(t *testing.T) {
	err := NewStatusError(400, strings.Repeat("x", 2000))
	assert.Less(t, len(err.Error()), 600)
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
}

func TestStatusCode_NoStatus(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("boom")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	assert.True(t, errors.Is(te, inner))
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, "root cause", te.Error())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transient error", NewTransientError(errors.New("503"), 503), ErrorTypeTransient},
		{"transient status", NewStatusError(502, "bad gateway"), ErrorTypeTransient},
		{"permanent status", NewStatusError(400, "bad request"), ErrorTypePermanent},
		{"permanent error", errors.New("invalid input"), ErrorTypePermanent},
		{"connection reset", errors.New("connection reset by peer"), ErrorTypeTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
