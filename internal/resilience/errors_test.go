package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsUpstreamUnavailable_ExplicitUpstreamError(t *testing.T) {
	err := NewUpstreamError(errors.New("weatherapi: unexpected status 503"), 503)
	if !IsUpstreamUnavailable(err) {
		t.Error("expected UpstreamError to be upstream-unavailable")
	}
}

func TestIsUpstreamUnavailable_WrappedByEris(t *testing.T) {
	inner := NewUpstreamError(errors.New("datagov: unexpected status 502"), 502)
	wrapped := eris.Wrap(inner, "mandi: live fetch")
	if !IsUpstreamUnavailable(wrapped) {
		t.Error("expected wrapped UpstreamError to be upstream-unavailable")
	}
	if got := StatusCode(wrapped); got != 502 {
		t.Errorf("StatusCode = %d, want 502", got)
	}
}

func TestIsUpstreamUnavailable_NilError(t *testing.T) {
	if IsUpstreamUnavailable(nil) {
		t.Error("nil error should not be upstream-unavailable")
	}
}

func TestIsUpstreamUnavailable_RegularError(t *testing.T) {
	err := errors.New("invalid input: missing field")
	if IsUpstreamUnavailable(err) {
		t.Error("regular error should not be upstream-unavailable")
	}
}

func TestIsUpstreamUnavailable_DeadlineExceeded(t *testing.T) {
	err := fmt.Errorf("weatherapi: send request: %w", context.DeadlineExceeded)
	if !IsUpstreamUnavailable(err) {
		t.Error("deadline exceeded should be upstream-unavailable")
	}
}

func TestIsUpstreamUnavailable_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	if !IsUpstreamUnavailable(err) {
		t.Error("ECONNREFUSED should be upstream-unavailable")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsUpstreamUnavailable_NetTimeout(t *testing.T) {
	err := fmt.Errorf("read: %w", timeoutErr{})
	if !IsUpstreamUnavailable(err) {
		t.Error("net timeout should be upstream-unavailable")
	}
}

func TestIsUpstreamUnavailable_StringPatterns(t *testing.T) {
	for _, msg := range []string{
		"dial tcp: lookup api.weatherapi.com: no such host",
		"read tcp 10.0.0.1:443: i/o timeout",
	} {
		if !IsUpstreamUnavailable(errors.New(msg)) {
			t.Errorf("expected %q to be upstream-unavailable", msg)
		}
	}
}

func TestConfigError(t *testing.T) {
	err := eris.Wrap(NewConfigError("Weather API key not configured."), "weather: fetch")
	if !IsConfigError(err) {
		t.Error("expected wrapped ConfigError to be detected")
	}
	if IsUpstreamUnavailable(NewConfigError("x")) {
		t.Error("ConfigError should not be upstream-unavailable")
	}
	if StatusCode(errors.New("plain")) != 0 {
		t.Error("StatusCode of a plain error should be 0")
	}
}
