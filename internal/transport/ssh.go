package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	mlerr "mudlink/internal/errors"
	"mudlink/tunnel"
	"mudlink/util"
)

// SSHDialer reaches a game server that is only visible from behind an
// SSH bastion.  Every telnet connection is one direct-tcpip channel on a
// shared gateway session.  The gateway is opened on first use and
// reopened if it has dropped, so a reconnect survives a bastion restart.
type SSHDialer struct {
	gateway *tunnel.SSHTunnel
	label   string // user@host:port
	logger  *util.Logger

	mu     sync.Mutex // serializes gateway opens
	opened int
}

// NewSSHDialer returns a dialer for the gateway described by cfg.
// Nothing is dialled until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	gw := tunnel.NewSSHTunnel(cfg, logger)
	return &SSHDialer{
		gateway: gw,
		label:   cfg.User + "@" + cfg.Addr(),
		logger:  logger,
	}
}

// Dial opens a channel to address, (re)opening the gateway first if
// needed.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.ensureGateway(ctx); err != nil {
		return nil, err
	}
	conn, err := d.gateway.Dial(ctx, network, address)
	if mlerr.Is(err, mlerr.ErrTunnelClosed) {
		// Gateway dropped between the check and the channel open.
		if err := d.ensureGateway(ctx); err != nil {
			return nil, err
		}
		conn, err = d.gateway.Dial(ctx, network, address)
	}
	return conn, err
}

// GatewaysOpened reports how many gateway sessions have been set up.
func (d *SSHDialer) GatewaysOpened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Close ends the gateway session.  Open channels die with it.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gateway.Close()
}

func (d *SSHDialer) ensureGateway(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gateway.IsAlive() {
		return nil
	}
	if d.opened > 0 {
		d.logger.Warn("SSH gateway %s dropped, reopening", d.label)
	} else {
		d.logger.Verbose("opening SSH gateway %s", d.label)
	}

	if err := d.gateway.Connect(ctx); err != nil {
		return fmt.Errorf("gateway %s: %w", d.label, err)
	}
	d.opened++
	d.logger.Verbose("SSH gateway %s ready", d.label)
	return nil
}
