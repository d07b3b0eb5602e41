// Package session runs one telnet connection to a game server.
//
// A Session owns the socket and a single receive goroutine.  The
// goroutine feeds every read through a telnet.Assembler, answers option
// offers, and queues completed lines; the caller drains them with
// PollLine from its own loop and writes with SendLine.  Nothing that
// happens on the receive goroutine is returned as an error: faults are
// reported to the StatusSink and the session simply becomes
// disconnected.
package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	mlerr "mudlink/internal/errors"
	"mudlink/internal/metrics"
	"mudlink/internal/telnet"
	"mudlink/internal/transport"
	"mudlink/util"
)

// Defaults used by DefaultConfig.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultReceiveBufferSize = 4096
)

// Config describes how to reach a server.  It is a plain value; a
// Session keeps its own copy, so changing the endpoint means building a
// new Session.  No validation happens here: a bad host or port shows up
// as a connect failure.
type Config struct {
	Host              string
	Port              int
	ConnectTimeout    time.Duration
	ReceiveBufferSize int
	KeepAlive         bool

	// Charset is the IANA name used to decode inbound lines and encode
	// outbound ones.  Empty means UTF-8.
	Charset string
}

// DefaultConfig returns a Config for host:port with the stock timeout,
// buffer size and keep-alive.
func DefaultConfig(host string, port int) Config {
	return Config{
		Host:              host,
		Port:              port,
		ConnectTimeout:    DefaultConnectTimeout,
		ReceiveBufferSize: DefaultReceiveBufferSize,
		KeepAlive:         true,
		Charset:           telnet.DefaultCharset,
	}
}

// Address returns host:port, bracketing IPv6 literals.
func (c Config) Address() string {
	return util.FormatAddr(c.Host, c.Port)
}

// StatusSink receives human-readable lifecycle messages.  Status may be
// called from the receive goroutine and must not block for long.
type StatusSink interface {
	Status(msg string)
}

// StatusFunc adapts an ordinary function to a StatusSink.
type StatusFunc func(msg string)

// Status calls f(msg).
func (f StatusFunc) Status(msg string) { f(msg) }

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces the default TCP dialer, e.g. with an SSH dialer.
func WithDialer(d transport.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithStatusSink sets where lifecycle messages go.
func WithStatusSink(sink StatusSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithLogger sets the logger for protocol-level debug output.
func WithLogger(l *util.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the collector.  Without it the session keeps its own.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

// connection is everything tied to one socket.  A reconnect gets a new
// one, so a late-exiting receive goroutine can only touch its own.
type connection struct {
	conn net.Conn
	asm  *telnet.Assembler
	stop atomic.Bool
	done chan struct{}
}

// Session is a telnet client connection.  All exported methods are safe
// to call from any goroutine.
type Session struct {
	cfg     Config
	charset *telnet.Charset
	dialer  transport.Dialer
	sink    StatusSink
	logger  *util.Logger
	metrics *metrics.Collector
	lines   lineQueue

	connectMu sync.Mutex // serializes Connect

	mu   sync.Mutex // guards conn
	conn *connection

	writeMu sync.Mutex // serializes socket writes
}

// New creates a disconnected Session.  An unknown charset falls back to
// UTF-8 with a warning.
func New(cfg Config, opts ...Option) *Session {
	s := &Session{cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.dialer == nil {
		s.dialer = transport.NewTCPDialer(cfg.ConnectTimeout, cfg.KeepAlive)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.cfg.ReceiveBufferSize <= 0 {
		s.cfg.ReceiveBufferSize = DefaultReceiveBufferSize
	}

	cs, err := telnet.NewCharset(cfg.Charset)
	if err != nil {
		s.logger.Warn("%v; using %s", err, telnet.DefaultCharset)
		cs = telnet.UTF8()
	}
	s.charset = cs
	return s
}

// Config returns the session's copy of its configuration.
func (s *Session) Config() Config { return s.cfg }

// Metrics returns the session's collector.
func (s *Session) Metrics() *metrics.Collector { return s.metrics }

// IsConnected reports whether a live connection exists.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Done returns a channel that is closed once the current connection's
// receive goroutine has exited.  When disconnected it returns an
// already-closed channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.conn.done
}

// Connect dials the server and starts the receive goroutine.  It does
// nothing if already connected.  The dial is bounded by the configured
// connect timeout and by ctx.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if s.IsConnected() {
		return nil
	}

	addr := s.cfg.Address()
	dialCtx := ctx
	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}

	s.logger.Verbose("connecting to %s", addr)
	conn, err := s.dialer.Dial(dialCtx, "tcp", addr)
	if err != nil {
		s.metrics.RecordError(err.Error())
		return mlerr.WrapConnect(addr, err)
	}

	cx := &connection{
		conn: conn,
		done: make(chan struct{}),
	}
	cx.asm = telnet.NewAssembler(
		telnet.WithCharset(s.charset),
		telnet.WithNegotiationHandler(func(n telnet.Negotiation) {
			s.logger.Debug("recv IAC %s", n)
		}),
		telnet.WithSubnegotiationHandler(func(opt byte, payload []byte) {
			s.metrics.SubnegotiationIgnored()
			s.logger.Debug("ignoring subnegotiation %s (%d bytes)",
				telnet.OptionName(opt), len(payload))
		}),
	)

	s.mu.Lock()
	s.conn = cx
	s.mu.Unlock()
	s.metrics.ConnectionOpened()

	// Report before the receive goroutine can report anything itself.
	s.notify("connected to " + addr)
	go s.receive(cx)
	return nil
}

// Close disconnects.  It does nothing if not connected and never waits
// for the receive goroutine; use Done for that.
func (s *Session) Close() {
	s.mu.Lock()
	cx := s.conn
	s.conn = nil
	s.mu.Unlock()

	if cx == nil {
		return
	}

	s.notify("disconnecting...")
	cx.stop.Store(true)
	shutdown(cx.conn)
	cx.conn.Close()
	s.notify("disconnected")
}

// SendLine writes text followed by CRLF.  Text is encoded with the
// session charset and any 0xFF byte is doubled.
func (s *Session) SendLine(text string) error {
	s.mu.Lock()
	cx := s.conn
	s.mu.Unlock()

	if cx == nil {
		return mlerr.ErrNotConnected
	}

	wire := telnet.EscapeIAC(s.charset.Encode(text + "\r\n"))
	if err := s.write(cx, wire); err != nil {
		return mlerr.Wrap("write", s.cfg.Address(), err)
	}
	s.metrics.LineSent()
	return nil
}

// PollLine returns the oldest received line, if any.  It never blocks.
func (s *Session) PollLine() (string, bool) {
	return s.lines.pop()
}

// Pending returns the number of lines waiting to be polled.
func (s *Session) Pending() int {
	return s.lines.len()
}

func (s *Session) write(cx *connection, p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := cx.conn.Write(p)
	s.metrics.BytesSent(n)
	return err
}

// receive is the per-connection read loop.
func (s *Session) receive(cx *connection) {
	defer close(cx.done)

	buf := make([]byte, s.cfg.ReceiveBufferSize)
	var readErr error

	for !cx.stop.Load() {
		n, err := cx.conn.Read(buf)
		if n > 0 {
			s.metrics.BytesReceived(n)
			s.handle(cx, buf[:n])
		}
		if err != nil {
			readErr = err
			break
		}
	}

	if mlerr.Is(readErr, io.EOF) && !cx.stop.Load() {
		// Server closed cleanly; keep a prompt that had no terminator.
		if line, ok := cx.asm.FlushPendingLine(); ok {
			s.lines.push(line)
			s.metrics.LinesReceived(1)
		}
	}

	cx.conn.Close()

	s.mu.Lock()
	if s.conn == cx {
		s.conn = nil
	}
	s.mu.Unlock()
	s.metrics.ConnectionClosed()

	if !cx.stop.Load() && !mlerr.IsHarmless(readErr) {
		s.metrics.RecordError(readErr.Error())
		s.notify(fmt.Sprintf("socket error: %v", readErr))
	}
	s.notify("connection closed")
}

func (s *Session) handle(cx *connection, p []byte) {
	res := cx.asm.Feed(p)

	for _, r := range res.Replies {
		s.logger.Debug("send IAC %s", r)
		if err := s.write(cx, r.Bytes()); err != nil {
			s.logger.Debug("negotiation reply failed: %v", err)
			continue
		}
		s.metrics.NegotiationRefused()
	}

	if len(res.Lines) > 0 {
		s.lines.push(res.Lines...)
		s.metrics.LinesReceived(len(res.Lines))
	}
}

func (s *Session) notify(msg string) {
	s.logger.Debug("status: %s", msg)
	if s.sink != nil {
		s.sink.Status(msg)
	}
}

// shutdown half-closes both directions where the conn supports it.
// Errors are ignored; the socket is closed right after.
func shutdown(c net.Conn) {
	type halfCloser interface {
		CloseRead() error
		CloseWrite() error
	}
	if hc, ok := c.(halfCloser); ok {
		_ = hc.CloseRead()
		_ = hc.CloseWrite()
	}
}
