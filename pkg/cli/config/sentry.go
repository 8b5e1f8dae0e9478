package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type Sentry struct {
	dsn         string
	environment string
	release     string
}

func (x *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error reporting",
			Category:    "Sentry",
			Sources:     cli.EnvVars("HEARTH_SENTRY_DSN"),
			Destination: &x.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Category:    "Sentry",
			Sources:     cli.EnvVars("HEARTH_SENTRY_ENV"),
			Destination: &x.environment,
		},
		&cli.StringFlag{
			Name:        "sentry-release",
			Usage:       "Sentry release",
			Category:    "Sentry",
			Sources:     cli.EnvVars("HEARTH_SENTRY_RELEASE"),
			Destination: &x.release,
		},
	}
}

func (x Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.dsn != ""),
		slog.String("environment", x.environment),
		slog.String("release", x.release),
	)
}

// Configure initializes the global Sentry client. Without a DSN reporting
// stays disabled and the returned flush is a no-op.
func (x *Sentry) Configure() (func(), error) {
	if x.dsn == "" {
		logging.Default().Info("Sentry DSN not configured, error reporting disabled")
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         x.dsn,
		Environment: x.environment,
		Release:     x.release,
	}); err != nil {
		return func() {}, goerr.Wrap(err, "failed to initialize sentry")
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}
