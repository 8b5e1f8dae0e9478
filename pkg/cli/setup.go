package cli

import (
	"context"
	"time"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// engineConfig groups the flag sets shared by serve and check
type engineConfig struct {
	repo      config.Repository
	gemini    config.Gemini
	slack     config.Slack
	proactive config.Proactive
}

func (x *engineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.gemini.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	flags = append(flags, x.proactive.Flags()...)
	return flags
}

// engine is the wired application. close releases everything it opened.
type engine struct {
	repo     interfaces.Repository
	uc       *usecase.UseCases
	interval time.Duration
	close    func()
}

func (x *engineConfig) configure(ctx context.Context) (*engine, error) {
	logger := logging.Default()

	proactiveCfg, rankerCfg, err := x.proactive.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load proactive configuration")
	}

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	closeRepo := func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err.Error())
		}
	}

	svc, closeCompanion, err := x.gemini.ConfigureCompanion(ctx, rankerCfg)
	if err != nil {
		closeRepo()
		return nil, goerr.Wrap(err, "failed to configure companion")
	}

	opts := []usecase.Option{
		usecase.WithCompanion(svc),
		usecase.WithProactiveConfig(proactiveCfg),
		usecase.WithRankerConfig(rankerCfg),
	}

	notifier, err := x.slack.Configure()
	if err != nil {
		closeCompanion()
		closeRepo()
		return nil, goerr.Wrap(err, "failed to configure slack notifier")
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
		logger.Info("Slack caregiver notifications enabled", "slack", x.slack)
	}

	logger.Info("Engine configured",
		"repository", x.repo,
		"proactive", x.proactive,
		"interval", proactiveCfg.Interval,
		"time_zone", proactiveCfg.TimeZone.String(),
	)

	uc := usecase.New(repo, opts...)
	return &engine{
		repo:     repo,
		uc:       uc,
		interval: proactiveCfg.Interval,
		close: func() {
			uc.Hub().Close(context.Background())
			closeCompanion()
			closeRepo()
		},
	}, nil
}
