package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	mlerr "mudlink/internal/errors"
	"mudlink/tunnel"
)

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept, send a MUD greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("Welcome to the realm\r\n")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	ctx := context.Background()

	conn, err := d.Dial(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "Welcome to the realm\r\n" {
		t.Errorf("got %q, want %q", got, "Welcome to the realm\r\n")
	}
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := d.Dial(ctx, "tcp", "127.0.0.1:1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestTCPDialer_Close verifies Close is a no-op and returns nil.
func TestTCPDialer_Close(t *testing.T) {
	d := &TCPDialer{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestTCPDialer_KeepAliveSettings(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	for _, d := range []*TCPDialer{
		NewTCPDialer(time.Second, true),
		NewTCPDialer(time.Second, false),
		{Timeout: time.Second, KeepAlive: true, KeepAlivePeriod: 5 * time.Second},
	} {
		conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dial (keepalive=%v): %v", d.KeepAlive, err)
		}
		conn.Close()
	}
}

// TestTCPDialer_Refused verifies a closed port fails fast with a dial error.
func TestTCPDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewTCPDialer(2*time.Second, true).Dial(context.Background(), "tcp", addr)
	var opErr *net.OpError
	if !errors.As(err, &opErr) || opErr.Op != "dial" {
		t.Fatalf("err = %v, want dial OpError", err)
	}
}

func TestSSHDialer_CloseWithoutDial(t *testing.T) {
	d := NewSSHDialer(&tunnel.SSHConfig{Host: "127.0.0.1"}, nil)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestSSHDialer_GatewayUnreachable verifies a dead bastion surfaces as
// an SSH dial error and leaves nothing open.
func TestSSHDialer_GatewayUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	gw := ln.Addr().(*net.TCPAddr)
	ln.Close()

	d := NewSSHDialer(&tunnel.SSHConfig{
		User:        "player",
		Host:        "127.0.0.1",
		Port:        gw.Port,
		PromptPass:  true,
		Prompt:      func(string) ([]byte, error) { return []byte("secret"), nil },
		ConnTimeout: 2 * time.Second,
	}, nil)
	defer d.Close()

	_, err = d.Dial(context.Background(), "tcp", "10.0.0.5:4000")
	var sshErr *mlerr.SSHError
	if !errors.As(err, &sshErr) || sshErr.Op != "dial" {
		t.Fatalf("err = %v, want ssh dial error", err)
	}
	if n := d.GatewaysOpened(); n != 0 {
		t.Errorf("GatewaysOpened = %d, want 0", n)
	}
}

var (
	_ Dialer = (*TCPDialer)(nil)
	_ Dialer = (*SSHDialer)(nil)
)
