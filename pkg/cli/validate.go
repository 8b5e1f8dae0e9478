package cli

import (
	"context"
	"time"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var proactiveCfg config.Proactive
	var repoCfg config.Repository
	var checkRepository bool

	var flags []cli.Flag
	flags = append(flags, proactiveCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-repository",
		Usage:       "Also open the repository and read the delivery ledger",
		Destination: &checkRepository,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the proactive configuration and optionally the repository connection",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			proactive, ranker, err := proactiveCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"interval", proactive.Interval,
				"time_zone", proactive.TimeZone.String(),
				"ledger_retention", proactive.LedgerRetention,
				"queue_retention", proactive.QueueRetention,
				"similarity_threshold", ranker.SimilarityThreshold,
				"top_n", ranker.TopN,
			)
			for m := time.January; m <= time.December; m++ {
				if season, ok := proactive.Season(m); ok {
					logger.Debug("Season", "month", m.String(), "phrase", season.Phrase, "keywords", season.Keywords)
				}
			}

			if !checkRepository {
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			records, err := repo.Delivery().List(ctx, 1)
			if err != nil {
				return goerr.Wrap(err, "repository check failed", goerr.V(config.BackendKey, repoCfg.Backend()))
			}
			logger.Info("Repository check passed", "backend", repoCfg.Backend(), "has_deliveries", len(records) > 0)
			return nil
		},
	}
}
