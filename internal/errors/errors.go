// Package errors provides the error types shared across mudlink.
//
// Failures that happen in response to a caller action (dial, send) are
// returned as one of these types.  Failures on the receive goroutine are
// never returned; the session turns them into status messages.
package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrNotConnected is returned by SendLine when no live connection exists.
	ErrNotConnected = errors.New("not connected")
	// ErrTunnelClosed is returned by a tunnel dial before Connect or
	// after the gateway dropped.
	ErrTunnelClosed = errors.New("tunnel is closed")
)

// ── Structured error types ───────────────────────────────────────────

// ConnectError is a failed attempt to open the telnet connection:
// timeout, refusal or name resolution.
type ConnectError struct {
	Addr      string
	Err       error
	Retryable bool
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Timeout reports whether the dial ran out of time.
func (e *ConnectError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// NetworkError is a failure of an I/O operation on an open connection.
type NetworkError struct {
	Op        string // "write", "read", "shutdown"
	Addr      string
	Err       error
	Retryable bool
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError is a failure talking to the SSH gateway.
type SSHError struct {
	Op   string // "auth", "hostkey", "handshake", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError is an invalid setting, reported against its flag name.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
	Hint    string
}

func (e *ConfigError) Error() string {
	msg := "config: --" + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// WrapConnect builds a ConnectError for a failed dial to addr.
func WrapConnect(addr string, err error) *ConnectError {
	return &ConnectError{Addr: addr, Err: err, Retryable: classifyRetryable(err)}
}

// Wrap builds a NetworkError for op on addr.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err, Retryable: classifyRetryable(err)}
}

// WrapSSH builds an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification ───────────────────────────────────────────────────

// IsRetryable reports whether trying the same operation again could
// succeed.  Refused connections and timeouts are retryable; an unknown
// host is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Any dial-level failure that survived the DNS check above,
		// typically ECONNREFUSED while the server reboots.
		return opErr.Op == "dial" || opErr.Timeout()
	}
	return false
}

// IsHarmless reports whether err is the expected fallout of closing a
// connection: EOF or use of a closed connection.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.EOF)
}

// ── Re-exports ───────────────────────────────────────────────────────

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
