package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	mlerr "mudlink/internal/errors"
	"mudlink/internal/retry"
	"mudlink/internal/session"
	"mudlink/internal/transport"
	"mudlink/util"
)

// Console commands.  Anything else typed is sent to the server.
const (
	CmdQuit      = "/quit"
	CmdReconnect = "/reconnect"
)

// ConsoleMode connects a session and shuttles lines between it and a
// line-oriented terminal.  Received lines are drained once per frame.
type ConsoleMode struct {
	Session       *session.Session
	Dialer        transport.Dialer
	Commands      []string       // sent in order after each connect
	Backoff       *retry.Backoff // nil = a single connect attempt
	FrameInterval time.Duration
	Logger        *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConsoleMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConsoleMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *ConsoleMode) interactive() bool {
	return m.Stdin == nil && term.IsTerminal(int(os.Stdin.Fd()))
}

// Status renders session lifecycle messages.  It makes ConsoleMode a
// session.StatusSink.
func (m *ConsoleMode) Status(msg string) {
	m.Logger.Info("%s", msg)
}

// Run connects, then loops until the user quits, stdin ends, the server
// hangs up or ctx is cancelled.  The session and dialer are closed when
// Run returns.
func (m *ConsoleMode) Run(ctx context.Context) error {
	if m.Dialer != nil {
		defer m.Dialer.Close()
	}
	defer m.Session.Close()

	if err := m.connect(ctx); err != nil {
		return err
	}
	if m.interactive() {
		m.Logger.Info("type %s to leave, %s to reconnect", CmdQuit, CmdReconnect)
	}

	frame := m.FrameInterval
	if frame <= 0 {
		frame = 50 * time.Millisecond
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	out := bufio.NewWriter(m.stdout())
	defer out.Flush()

	stop := make(chan struct{})
	defer close(stop)
	input := readLines(m.stdin(), stop)
	done := m.Session.Done()

	for {
		select {
		case <-ctx.Done():
			m.drain(out)
			return nil

		case <-ticker.C:
			m.drain(out)

		case <-done:
			m.drain(out)
			return nil

		case line, ok := <-input:
			if !ok {
				// Ctrl-D on a terminal leaves; piped input stays
				// connected until the server hangs up.
				if m.interactive() {
					m.drain(out)
					return nil
				}
				input = nil
				continue
			}
			switch strings.TrimSpace(line) {
			case CmdQuit:
				m.drain(out)
				return nil
			case CmdReconnect:
				m.drain(out)
				m.Session.Close()
				if err := m.connect(ctx); err != nil {
					return err
				}
				done = m.Session.Done()
			default:
				m.send(line)
			}
		}
	}
}

// connect dials, retrying per Backoff, and sends the startup commands.
func (m *ConsoleMode) connect(ctx context.Context) error {
	attempt := func(int) error { return m.Session.Connect(ctx) }

	var err error
	if m.Backoff != nil {
		err = m.Backoff.Do(ctx, attempt)
	} else {
		err = attempt(1)
	}
	if err != nil {
		return err
	}

	for _, c := range m.Commands {
		m.send(c)
	}
	return nil
}

func (m *ConsoleMode) send(line string) {
	err := m.Session.SendLine(line)
	switch {
	case err == nil:
	case mlerr.Is(err, mlerr.ErrNotConnected):
		m.Logger.Warn("not connected; type %s or %s", CmdReconnect, CmdQuit)
	default:
		m.Logger.Error("%v", err)
	}
}

// drain writes every queued line and flushes once.
func (m *ConsoleMode) drain(out *bufio.Writer) {
	for {
		line, ok := m.Session.PollLine()
		if !ok {
			break
		}
		fmt.Fprintln(out, line)
	}
	out.Flush()
}

// readLines scans r on its own goroutine.  The channel is closed at EOF.
// A read blocked on a terminal cannot be interrupted, so the goroutine
// may outlive Run until its next line arrives.
func readLines(r io.Reader, stop <-chan struct{}) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-stop:
				return
			}
		}
	}()
	return ch
}
