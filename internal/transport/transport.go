// Package transport opens the byte stream a telnet session runs over.
// A session only asks its Dialer for a net.Conn; whether that is a
// direct TCP socket or a channel through an SSH gateway is decided here.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases long-lived resources held by the dialer, such as
	// an SSH client.  Stateless dialers return nil.
	Close() error
}
