package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 529), true},
		{"wrapped explicit", fmt.Errorf("llm: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"plain", errors.New("invalid api key"), false},
		{"econnreset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"econnrefused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"i/o timeout text", errors.New("read tcp 10.0.0.1: i/o timeout"), true},
		{"unexpected eof text", errors.New("Post \"https://api\": unexpected EOF"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	base := errors.New("provider said no")
	assert.True(t, IsTransient(ClassifyStatus(base, 429)))
	assert.True(t, IsTransient(ClassifyStatus(base, 529)))
	assert.False(t, IsTransient(ClassifyStatus(base, 400)))
	assert.NoError(t, ClassifyStatus(nil, 503))

	var te *TransientError
	assert.ErrorAs(t, ClassifyStatus(base, 503), &te)
	assert.Equal(t, 503, te.StatusCode)
	assert.ErrorIs(t, te, base)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
