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

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("x"), 429), true},
		{"wrapped explicit", eris.Wrap(NewTransientError(errors.New("x"), 503), "fetch"), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"io timeout text", errors.New("dial tcp: i/o timeout"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("invalid json"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	err := StatusError("fetch", 503, "unavailable")
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "status 503")

	err = StatusError("fetch", 404, "not found")
	assert.False(t, IsTransient(err))
	assert.Equal(t, ClassPermanent, Classify(err))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestNewFailure(t *testing.T) {
	f := NewFailure(3, "https://x", "Titel", "fetch", NewTransientError(errors.New("busy"), 503))
	assert.Equal(t, 3, f.Index)
	assert.Equal(t, "fetch", f.Stage)
	assert.Equal(t, ClassTransient, f.Class)
	assert.Equal(t, "busy", f.Error)
	assert.False(t, f.At.IsZero())
}
