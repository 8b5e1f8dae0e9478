package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpctrl "github.com/hearth-archive/hearth/pkg/controller/http"
	"github.com/hearth-archive/hearth/pkg/service/worker"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdServe() *cli.Command {
	var addr string
	var allowedOrigins []string
	var pingInterval time.Duration
	var enableScheduler bool
	var engineCfg engineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("HEARTH_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "allowed-origin",
			Usage:       "Origin allowed to open the websocket (repeatable, any origin when unset)",
			Sources:     cli.EnvVars("HEARTH_ALLOWED_ORIGINS"),
			Destination: &allowedOrigins,
		},
		&cli.DurationFlag{
			Name:        "ws-ping-interval",
			Usage:       "Interval of websocket keepalive pings",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("HEARTH_WS_PING_INTERVAL"),
			Destination: &pingInterval,
		},
		&cli.BoolFlag{
			Name:        "scheduler",
			Usage:       "Run proactive detection on a fixed interval",
			Value:       true,
			Sources:     cli.EnvVars("HEARTH_SCHEDULER"),
			Destination: &enableScheduler,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP and websocket server with the proactive scheduler",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			eng, err := engineCfg.configure(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			server := &http.Server{
				Addr: addr,
				Handler: httpctrl.New(eng.uc,
					httpctrl.WithAllowedOrigins(allowedOrigins...),
					httpctrl.WithPingInterval(pingInterval),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var proactiveWorker *worker.ProactiveWorker
			if enableScheduler {
				proactiveWorker = worker.NewProactiveWorker(func(ctx context.Context) error {
					_, err := eng.uc.Proactive.RunCycle(ctx)
					return err
				}, eng.interval)
				if err := proactiveWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start proactive worker")
				}
				logger.Info("Proactive scheduler started", "interval", eng.interval)
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logger.Info("Shutting down")

				if proactiveWorker != nil {
					proactiveWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			})

			return eg.Wait()
		},
	}
}
