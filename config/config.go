// Package config defines the runtime configuration for mudlink and the
// helpers for parsing endpoints and tunnel specifications.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	mlerr "mudlink/internal/errors"
	"mudlink/internal/session"
	"mudlink/internal/telnet"
	"mudlink/tunnel"
	"mudlink/util"
)

// Config holds every tuneable for one mudlink run.  Fields tagged for
// YAML can be set from a --config file.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Timeout   time.Duration `yaml:"timeout"`
	RecvBuf   int           `yaml:"recv_buf"`
	KeepAlive bool          `yaml:"keepalive"`
	Charset   string        `yaml:"charset"`
	NoDNS     bool          `yaml:"no_dns"`

	// ── Console ──────────────────────────────────────────────────────
	Commands      []string      `yaml:"commands"` // sent in order after connecting
	Retry         int           `yaml:"retry"`    // extra connect attempts
	FrameInterval time.Duration `yaml:"frame_interval"`

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string `yaml:"tunnel"` // raw [user@]host[:port] from -T
	TunnelEnabled  bool   `yaml:"-"`
	TunnelUser     string `yaml:"-"`
	TunnelHost     string `yaml:"-"`
	TunnelPort     int    `yaml:"-"`
	SSHKeyPath     string `yaml:"ssh_key"`
	SSHPassword    bool   `yaml:"ssh_password"` // true → prompt interactively
	UseSSHAgent    bool   `yaml:"ssh_agent"`
	StrictHostKey  bool   `yaml:"strict_hostkey"`
	KnownHostsPath string `yaml:"known_hosts"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int    `yaml:"verbose"`
	LogFile string `yaml:"log_file"`
	Stats   bool   `yaml:"stats"`
	DryRun  bool   `yaml:"-"`
}

// ── Endpoint helpers ─────────────────────────────────────────────────

// ParsePort parses a TCP port number in 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ParseEndpoint accepts the positional arguments "host", "host port",
// "host:port" or "[v6addr]:port".  A missing port yields DefaultPort.
func ParseEndpoint(args []string) (host string, port int, err error) {
	switch len(args) {
	case 1:
		h, p, splitErr := net.SplitHostPort(args[0])
		if splitErr != nil {
			// Bare host, possibly an unbracketed IPv6 literal.
			return strings.Trim(args[0], "[]"), DefaultPort, nil
		}
		port, err = ParsePort(p)
		return h, port, err
	case 2:
		port, err = ParsePort(args[1])
		return args[0], port, err
	case 0:
		return "", 0, fmt.Errorf("hostname is required")
	default:
		return "", 0, fmt.Errorf("too many arguments: %q", args)
	}
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q, expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.  An empty
// spec disables the tunnel.  A missing user falls back to $USER.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &mlerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: err.Error()}
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is usable.  Errors are
// *errors.ConfigError naming the offending flag.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &mlerr.ConfigError{
			Field:   "host",
			Message: "hostname is required",
			Hint:    "usage: mudlink [options] <host> [port]",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &mlerr.ConfigError{Field: "port", Value: c.Port, Message: "must be in 1-65535"}
	}
	if c.NoDNS {
		if err := util.RequireNumeric(c.Host); err != nil {
			return &mlerr.ConfigError{Field: "no-dns", Value: c.Host, Message: err.Error()}
		}
	}
	if c.Timeout <= 0 {
		return &mlerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must be positive"}
	}
	if c.RecvBuf < 1 || c.RecvBuf > 1<<20 {
		return &mlerr.ConfigError{
			Field:   "recv-buf",
			Value:   c.RecvBuf,
			Message: "must be between 1 and 1048576 bytes",
		}
	}
	if _, err := telnet.NewCharset(c.Charset); err != nil {
		return &mlerr.ConfigError{
			Field:   "charset",
			Value:   c.Charset,
			Message: "unknown character set",
			Hint:    "use an IANA name, e.g. UTF-8 or ISO-8859-1",
		}
	}
	if c.FrameInterval <= 0 {
		return &mlerr.ConfigError{Field: "frame", Value: c.FrameInterval, Message: "must be positive"}
	}
	if c.Retry < 0 {
		return &mlerr.ConfigError{Field: "retry", Value: c.Retry, Message: "must not be negative"}
	}
	if c.TunnelEnabled {
		if c.TunnelHost == "" {
			return &mlerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
		}
		if c.TunnelUser == "" {
			return &mlerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "no SSH user",
				Hint:    "give one as user@host",
			}
		}
	}
	return nil
}

// ── Conversions ──────────────────────────────────────────────────────

// Session returns the connection settings for the telnet session.
func (c *Config) Session() session.Config {
	return session.Config{
		Host:              c.Host,
		Port:              c.Port,
		ConnectTimeout:    c.Timeout,
		ReceiveBufferSize: c.RecvBuf,
		KeepAlive:         c.KeepAlive,
		Charset:           c.Charset,
	}
}

// SSH returns the gateway settings, or nil when no tunnel is configured.
func (c *Config) SSH() *tunnel.SSHConfig {
	if !c.TunnelEnabled {
		return nil
	}
	return &tunnel.SSHConfig{
		User:          c.TunnelUser,
		Host:          c.TunnelHost,
		Port:          c.TunnelPort,
		KeyPath:       c.SSHKeyPath,
		PromptPass:    c.SSHPassword,
		UseAgent:      c.UseSSHAgent,
		StrictHostKey: c.StrictHostKey,
		KnownHosts:    c.KnownHostsPath,
		ConnTimeout:   c.Timeout,
	}
}
