package core

import (
	"testing"

	"mudlink/config"
	"mudlink/internal/transport"
	"mudlink/util"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Host = "mud.example.org"
	cfg.Port = 4000
	return cfg
}

// TestBuild_Console verifies that Build produces a disconnected console
// over a plain TCP dialer.
func TestBuild_Console(t *testing.T) {
	cfg := testConfig()
	cfg.Commands = []string{"logon gandalf"}

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if mode.Session == nil {
		t.Fatal("session should not be nil")
	}
	if mode.Session.IsConnected() {
		t.Error("Build must not connect")
	}
	if got := mode.Session.Config().Address(); got != "mud.example.org:4000" {
		t.Errorf("session address = %q", got)
	}
	if _, ok := mode.Dialer.(*transport.TCPDialer); !ok {
		t.Errorf("expected *transport.TCPDialer, got %T", mode.Dialer)
	}
	if mode.Backoff != nil {
		t.Error("no retries configured, Backoff should be nil")
	}
	if len(mode.Commands) != 1 {
		t.Errorf("Commands = %q", mode.Commands)
	}
}

// TestBuild_Tunnel verifies that -T selects the SSH dialer.
func TestBuild_Tunnel(t *testing.T) {
	cfg := testConfig()
	cfg.TunnelSpec = "player@bastion.example.org"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.Dialer.(*transport.SSHDialer); !ok {
		t.Errorf("expected *transport.SSHDialer, got %T", mode.Dialer)
	}
}

// TestBuild_Retry verifies --retry N allows N extra attempts.
func TestBuild_Retry(t *testing.T) {
	cfg := testConfig()
	cfg.Retry = 2

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	if mode.Backoff == nil || mode.Backoff.MaxAttempts != 3 {
		t.Fatalf("Backoff = %+v, want 3 attempts", mode.Backoff)
	}
	if mode.Backoff.Retryable == nil || mode.Backoff.OnRetry == nil {
		t.Error("Backoff hooks should be set")
	}
}

// TestBuild_NoDNS_Error verifies that a hostname with -n is rejected.
func TestBuild_NoDNS_Error(t *testing.T) {
	cfg := testConfig()
	cfg.NoDNS = true

	if _, err := Build(cfg, util.NewLogger(0)); err == nil {
		t.Fatal("expected error for hostname with NoDNS")
	}
}

// TestBuild_NoDNS_IP verifies that a numeric IP with -n is accepted.
func TestBuild_NoDNS_IP(t *testing.T) {
	cfg := testConfig()
	cfg.Host = "127.0.0.1"
	cfg.NoDNS = true

	if _, err := Build(cfg, util.NewLogger(0)); err != nil {
		t.Fatal(err)
	}
}
