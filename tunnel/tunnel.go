// Package tunnel reaches game servers that are only visible from behind
// an SSH gateway.  The gateway is dialled once; every telnet connection
// is then a direct-tcpip channel over it.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an encrypted path through which TCP connections can be
// opened.
type Tunnel interface {
	// Connect establishes the gateway connection.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the gateway.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears the gateway connection down.
	Close() error

	// IsAlive reports whether the gateway connection is still up.
	IsAlive() bool
}

var _ Tunnel = (*SSHTunnel)(nil)
