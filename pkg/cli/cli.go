package cli

import (
	"context"
	"io"
	"os"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	return run(ctx, args, version, os.Stdout)
}

func run(ctx context.Context, args []string, version string, w io.Writer) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	flags := loggerCfg.Flags()
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "hearth",
		Usage:   "Proactive memory engine for family archives",
		Version: version,
		Flags:   flags,
		Writer:  w,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			closeLog, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, closeLog)

			flush, err := sentryCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Info("Starting hearth",
				"version", version,
				"logger", loggerCfg,
				"sentry", sentryCfg,
			)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// flush sentry before the log file goes away
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdCheck(w),
			cmdValidate(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
