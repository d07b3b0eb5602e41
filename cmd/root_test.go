package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	mlerr "mudlink/internal/errors"
	"mudlink/internal/metrics"
)

// captureOutput redirects the package output writer for one test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := output
	output = &buf
	t.Cleanup(func() { output = prev })
	return &buf
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	out := captureOutput(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "mudlink ") {
		t.Errorf("output = %q", out.String())
	}
}

// TestExecute_Help verifies --help (and no args) returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {}} {
		name := "no-args"
		if len(args) > 0 {
			name = args[0]
		}
		t.Run(name, func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	out := captureOutput(t)
	err := Execute(context.Background(), []string{
		"--dry-run", "-w", "2.5", "--charset", "ISO-8859-1",
		"-c", "logon gandalf", "-c", "look", "mud.example.org", "4000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plan := out.String()
	for _, want := range []string{
		"target:    mud.example.org:4000",
		"timeout:   2.5s",
		"charset:   ISO-8859-1",
		"command:   logon gandalf\ncommand:   look",
	} {
		if !strings.Contains(plan, want) {
			t.Errorf("plan missing %q:\n%s", want, plan)
		}
	}
}

// TestExecute_DryRunHostPort verifies the joined host:port form and the
// default port.
func TestExecute_DryRunHostPort(t *testing.T) {
	tests := []struct {
		arg, want string
	}{
		{"mud.example.org:4000", "mud.example.org:4000"},
		{"mud.example.org", "mud.example.org:23"},
		{"[::1]:4000", "[::1]:4000"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			out := captureOutput(t)
			if err := Execute(context.Background(), []string{"--dry-run", tt.arg}); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), "target:    "+tt.want+"\n") {
				t.Errorf("plan = %q, want target %s", out.String(), tt.want)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantField string
	}{
		{"bad charset", []string{"--dry-run", "--charset", "klingon-8", "mud.example.org"}, "charset"},
		{"zero timeout", []string{"--dry-run", "-w", "0", "mud.example.org"}, "timeout"},
		{"negative retry", []string{"--dry-run", "--retry", "-1", "mud.example.org"}, "retry"},
		{"no-dns hostname", []string{"--dry-run", "-n", "mud.example.org"}, "no-dns"},
		{"no host", []string{"--dry-run"}, "host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t)
			err := Execute(context.Background(), tt.args)
			var ce *mlerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

// TestExecute_BadPort verifies out-of-range ports are rejected.
func TestExecute_BadPort(t *testing.T) {
	for _, args := range [][]string{
		{"--dry-run", "mud.example.org", "0"},
		{"--dry-run", "mud.example.org", "telnet"},
		{"--dry-run", "mud.example.org:70000"},
	} {
		if err := Execute(context.Background(), args); err == nil {
			t.Errorf("Execute(%q): expected error", args)
		}
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_Layering verifies defaults < file < env < flags.
func TestExecute_Layering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mudlink.yaml")
	file := "host: file.example.org\nport: 4000\ncharset: IBM437\nretry: 2\n"
	if err := os.WriteFile(path, []byte(file), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MUDLINK_CHARSET", "ISO-8859-1")
	t.Setenv("MUDLINK_RETRY", "5")

	out := captureOutput(t)
	err := Execute(context.Background(), []string{"--config", path, "--dry-run", "--retry", "1"})
	if err != nil {
		t.Fatal(err)
	}

	plan := out.String()
	for _, want := range []string{
		"target:    file.example.org:4000", // file, no positional host
		"charset:   ISO-8859-1",            // env beats file
		"retry:     1",                     // flag beats env
	} {
		if !strings.Contains(plan, want) {
			t.Errorf("plan missing %q:\n%s", want, plan)
		}
	}
}

// TestExecute_BadConfigFile verifies file errors surface.
func TestExecute_BadConfigFile(t *testing.T) {
	err := Execute(context.Background(), []string{"--config=/nonexistent/mudlink.yaml", "mud.example.org"})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestExecute_Session runs a full session against a loopback server that
// expects the startup command, answers and hangs up.
func TestExecute_Session(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		c.SetReadDeadline(time.Now().Add(3 * time.Second)) //nolint:errcheck
		line, _ := bufio.NewReader(c).ReadString('\n')
		got <- line
		c.Write([]byte("Welcome back, gandalf.\r\n")) //nolint:errcheck
	}()

	out := captureOutput(t)
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = Execute(ctx, []string{"-v", "--stats", "-c", "logon gandalf", "127.0.0.1", port})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("session only ended because the test timed out")
	}

	if line := <-got; line != "logon gandalf\r\n" {
		t.Errorf("server got %q", line)
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("--stats output is not JSON: %v\n%s", err, out.String())
	}
	if snap.ConnectionsTotal != 1 || snap.LinesOut != 1 || snap.LinesIn != 1 {
		t.Errorf("stats = %+v", snap)
	}
}
