// Package metrics counts what a telnet session did: connections, bytes,
// lines, refused negotiations and errors.
//
// All methods are safe for concurrent use.  A nil *Collector is a valid
// no-op receiver, so the session never needs to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime counters for one session.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	linesIn           atomic.Int64
	linesOut          atomic.Int64
	refusals          atomic.Int64
	subnegotiations   atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastRead     time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connections ──────────────────────────────────────────────────────

// ConnectionOpened increments the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the number of open connections (0 or 1 for
// a single session).
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns how many connects succeeded.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── Traffic ──────────────────────────────────────────────────────────

// BytesReceived records n bytes read from the socket.
func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.bytesIn.Add(int64(n))
	c.mu.Lock()
	c.lastRead = time.Now()
	c.mu.Unlock()
}

// BytesSent records n bytes written to the socket.
func (c *Collector) BytesSent(n int) {
	if c == nil {
		return
	}
	c.bytesOut.Add(int64(n))
}

// LinesReceived records n completed inbound lines.
func (c *Collector) LinesReceived(n int) {
	if c == nil {
		return
	}
	c.linesIn.Add(int64(n))
}

// LineSent records one outbound line.
func (c *Collector) LineSent() {
	if c == nil {
		return
	}
	c.linesOut.Add(1)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// TotalLinesIn returns total lines received.
func (c *Collector) TotalLinesIn() int64 {
	if c == nil {
		return 0
	}
	return c.linesIn.Load()
}

// ── Protocol ─────────────────────────────────────────────────────────

// NegotiationRefused records one WONT/DONT reply sent.
func (c *Collector) NegotiationRefused() {
	if c == nil {
		return
	}
	c.refusals.Add(1)
}

// Refusals returns how many option offers were declined.
func (c *Collector) Refusals() int64 {
	if c == nil {
		return 0
	}
	return c.refusals.Load()
}

// SubnegotiationIgnored records one discarded SB payload.
func (c *Collector) SubnegotiationIgnored() {
	if c == nil {
		return
	}
	c.subnegotiations.Add(1)
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and keeps the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Uptime                 string `json:"uptime"`
	ConnectionsActive      int64  `json:"connections_active"`
	ConnectionsTotal       int64  `json:"connections_total"`
	BytesIn                int64  `json:"bytes_in"`
	BytesOut               int64  `json:"bytes_out"`
	LinesIn                int64  `json:"lines_in"`
	LinesOut               int64  `json:"lines_out"`
	NegotiationsRefused    int64  `json:"negotiations_refused"`
	SubnegotiationsIgnored int64  `json:"subnegotiations_ignored"`
	ErrorsTotal            int64  `json:"errors_total"`
	LastRead               string `json:"last_read,omitempty"`
	LastError              string `json:"last_error,omitempty"`
	LastErrorMessage       string `json:"last_error_message,omitempty"`
}

// Snapshot returns the current values.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:                 time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive:      c.connectionsActive.Load(),
		ConnectionsTotal:       c.connectionsTotal.Load(),
		BytesIn:                c.bytesIn.Load(),
		BytesOut:               c.bytesOut.Load(),
		LinesIn:                c.linesIn.Load(),
		LinesOut:               c.linesOut.Load(),
		NegotiationsRefused:    c.refusals.Load(),
		SubnegotiationsIgnored: c.subnegotiations.Load(),
		ErrorsTotal:            c.errorsTotal.Load(),
	}
	if !c.lastRead.IsZero() {
		s.LastRead = c.lastRead.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as indented JSON.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}
