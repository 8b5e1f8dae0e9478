package config

import (
	"log/slog"

	"github.com/hearth-archive/hearth/pkg/service/slack"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken  string
	channelID string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token for caregiver notifications",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("HEARTH_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel that receives queued memory notices",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("HEARTH_SLACK_CHANNEL_ID"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel-id", x.channelID),
	)
}

// IsConfigured reports whether both the token and the channel are set
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure returns the caregiver notifier, or nil when Slack is not configured
func (x *Slack) Configure() (*slack.Notifier, error) {
	if x.botToken == "" && x.channelID == "" {
		logging.Default().Info("Slack not configured, caregiver notifications disabled")
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrMissingFlag, "slack-bot-token and slack-channel-id must be set together")
	}

	svc, err := slack.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return slack.NewNotifier(svc, x.channelID), nil
}
