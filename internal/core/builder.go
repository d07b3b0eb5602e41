package core

import (
	"time"

	"mudlink/config"
	mlerr "mudlink/internal/errors"
	"mudlink/internal/metrics"
	"mudlink/internal/retry"
	"mudlink/internal/session"
	"mudlink/internal/transport"
	"mudlink/util"
)

// Build constructs the console mode for cfg.  The returned mode owns a
// disconnected session; nothing touches the network until Run.
func Build(cfg *config.Config, logger *util.Logger) (*ConsoleMode, error) {
	if cfg.NoDNS {
		if err := util.RequireNumeric(cfg.Host); err != nil {
			return nil, err
		}
	}

	mode := &ConsoleMode{
		Dialer:        buildDialer(cfg, logger),
		Commands:      cfg.Commands,
		Backoff:       buildBackoff(cfg.Retry, logger),
		FrameInterval: cfg.FrameInterval,
		Logger:        logger,
	}
	mode.Session = session.New(cfg.Session(),
		session.WithDialer(mode.Dialer),
		session.WithStatusSink(mode),
		session.WithLogger(logger),
		session.WithMetrics(metrics.New()),
	)
	return mode, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if ssh := cfg.SSH(); ssh != nil {
		return transport.NewSSHDialer(ssh, logger)
	}
	return transport.NewTCPDialer(cfg.Timeout, cfg.KeepAlive)
}

// buildBackoff returns nil when no retries are wanted.
func buildBackoff(retries int, logger *util.Logger) *retry.Backoff {
	if retries <= 0 {
		return nil
	}
	b := retry.DefaultBackoff()
	b.InitialDelay = config.DefaultRetryInitialDelay
	b.MaxDelay = config.DefaultRetryMaxDelay
	b.MaxAttempts = retries + 1
	b.Retryable = mlerr.IsRetryable
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("%v (attempt %d); retrying in %s", err, attempt, wait.Round(100*time.Millisecond))
	}
	return b
}
