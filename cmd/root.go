// Package cmd wires up the CLI flags and runs the console.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"mudlink/config"
	"mudlink/internal/core"
	mlerr "mudlink/internal/errors"
	"mudlink/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X mudlink/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// output receives --version, --dry-run and --stats text.
var output io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs a session.
//
// Settings are layered: defaults, then the --config file, then MUDLINK_*
// environment variables, then flags.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Defaults()

	if path := configPath(args); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("mudlink", flag.ContinueOnError)

	// Every flag defaults to the layered value so only flags actually
	// given override it.

	// ── connection ───────────────────────────────────────────────
	timeoutSec := fs.Float64P("timeout", "w", cfg.Timeout.Seconds(), "Connect timeout in seconds")
	fs.IntVar(&cfg.RecvBuf, "recv-buf", cfg.RecvBuf, "Socket read size in bytes")
	noKeepAlive := fs.Bool("no-keepalive", !cfg.KeepAlive, "Disable TCP keep-alive")
	fs.StringVar(&cfg.Charset, "charset", cfg.Charset, "Server character set (IANA name)")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")

	// ── console ──────────────────────────────────────────────────
	fs.StringArrayVarP(&cfg.Commands, "command", "c", cfg.Commands, "Send a line after connecting (repeatable)")
	fs.IntVar(&cfg.Retry, "retry", cfg.Retry, "Extra connect attempts with backoff")
	fs.DurationVar(&cfg.FrameInterval, "frame", cfg.FrameInterval, "How often received lines are printed")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the server through SSH [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	var moreVerbose int
	fs.CountVarP(&moreVerbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write the log to a rotating file")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print session counters as JSON on exit")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate settings and exit without connecting")

	var configFile string
	fs.StringVar(&configFile, "config", "", "YAML settings file")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(output, "mudlink %s\n", version)
		return nil
	}

	cfg.Verbose += moreVerbose
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(*timeoutSec * float64(time.Second))
	}
	cfg.KeepAlive = !*noKeepAlive

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec / validate ───────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		printPlan(output, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	if cfg.LogFile != "" {
		logger = util.NewFileLogger(cfg.Verbose, util.FileOptions{Path: cfg.LogFile})
	}
	defer logger.Close()

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	err = mode.Run(ctx)
	if cfg.Stats {
		fmt.Fprintln(output, mode.Session.Metrics().JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional fills host and port from "<host> [port]" or
// "<host:port>".  A host from the config file or environment may stand
// in for the positional one.
func parsePositional(cfg *config.Config, remaining []string) error {
	if len(remaining) == 0 {
		if cfg.Host == "" {
			return &mlerr.ConfigError{
				Field:   "host",
				Message: "hostname is required",
				Hint:    "usage: mudlink [options] <host> [port]",
			}
		}
		return nil
	}

	host, port, err := config.ParseEndpoint(remaining)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	cfg.Host = host

	// A bare host keeps a port from the config file or environment.
	_, _, splitErr := net.SplitHostPort(remaining[0])
	if len(remaining) == 2 || splitErr == nil {
		cfg.Port = port
	}
	return nil
}

// configPath finds --config before the flag set exists, since the file
// has to be loaded first to supply flag defaults.
func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func printPlan(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "target:    %s\n", util.FormatAddr(cfg.Host, cfg.Port))
	if cfg.TunnelEnabled {
		fmt.Fprintf(w, "via:       ssh %s@%s\n", cfg.TunnelUser, util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort))
	}
	fmt.Fprintf(w, "timeout:   %s\n", cfg.Timeout)
	fmt.Fprintf(w, "recv-buf:  %d\n", cfg.RecvBuf)
	fmt.Fprintf(w, "keepalive: %v\n", cfg.KeepAlive)
	fmt.Fprintf(w, "charset:   %s\n", cfg.Charset)
	fmt.Fprintf(w, "retry:     %d\n", cfg.Retry)
	for _, c := range cfg.Commands {
		fmt.Fprintf(w, "command:   %s\n", c)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `mudlink – telnet client for MUDs v%s

Usage:
  mudlink [options] <host> [port]
  mudlink [options] <host:port>

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
While connected, typed lines are sent to the server.
  /quit        disconnect and exit
  /reconnect   drop the connection and dial again

Examples:
  mudlink mud.example.org 4000
  mudlink -c "logon gandalf" mud.example.org:4000
  mudlink --charset IBM437 bbs.example.org 23
  mudlink -T player@bastion.example.org 10.0.0.5 4000
`)
}
