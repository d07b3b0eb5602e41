package transport

import (
	"context"
	"net"
	"time"
)

// DefaultKeepAlivePeriod is the probe interval used when keep-alive is
// enabled without an explicit period.
const DefaultKeepAlivePeriod = 30 * time.Second

// TCPDialer establishes plain TCP connections.
type TCPDialer struct {
	Timeout         time.Duration
	KeepAlive       bool
	KeepAlivePeriod time.Duration // 0 = DefaultKeepAlivePeriod
}

// NewTCPDialer returns a dialer with the given connect timeout and
// keep-alive setting.
func NewTCPDialer(timeout time.Duration, keepAlive bool) *TCPDialer {
	return &TCPDialer{Timeout: timeout, KeepAlive: keepAlive}
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	// net.Dialer treats a negative KeepAlive as "disabled".
	switch {
	case !d.KeepAlive:
		dialer.KeepAlive = -1
	case d.KeepAlivePeriod > 0:
		dialer.KeepAlive = d.KeepAlivePeriod
	default:
		dialer.KeepAlive = DefaultKeepAlivePeriod
	}

	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
