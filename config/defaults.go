package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so the CLI flags, the config file and
// the environment overlay agree on them.

const (
	// DefaultPort is the standard telnet port.  Most MUDs listen
	// elsewhere (4000 is common), so users usually give one.
	DefaultPort = 23

	// DefaultConnTimeout bounds the TCP (or tunnel channel) dial.
	DefaultConnTimeout = 5 * time.Second

	// DefaultRecvBuf is the size of each socket read.
	DefaultRecvBuf = 4096

	// DefaultCharset decodes server text and encodes typed commands.
	DefaultCharset = "UTF-8"

	// DefaultFrameInterval is how often the console drains received
	// lines, the equivalent of a UI frame.
	DefaultFrameInterval = 50 * time.Millisecond

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultRetryInitialDelay and DefaultRetryMaxDelay shape the
	// backoff between connect attempts when --retry is set.
	DefaultRetryInitialDelay = 1 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	// EnvPrefix prefixes every environment variable read by LoadFromEnv.
	EnvPrefix = "MUDLINK_"
)

// Defaults returns a Config with every default filled in.
func Defaults() *Config {
	return &Config{
		Port:          DefaultPort,
		Timeout:       DefaultConnTimeout,
		RecvBuf:       DefaultRecvBuf,
		KeepAlive:     true,
		Charset:       DefaultCharset,
		FrameInterval: DefaultFrameInterval,
		Verbose:       1,
	}
}
