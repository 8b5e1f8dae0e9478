package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type checkOutput struct {
	Date    model.Date     `json:"date"`
	Trigger *model.Trigger `json:"trigger"`
}

// cmdCheck runs detection once and prints the trigger without touching the
// delivery ledger
func cmdCheck(w io.Writer) *cli.Command {
	var date string
	var engineCfg engineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Calendar day to evaluate (YYYY-MM-DD, default today)",
			Destination: &date,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "check",
		Aliases: []string{"c"},
		Usage:   "Detect the proactive trigger for a day and print it as JSON",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			eng, err := engineCfg.configure(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			day := eng.uc.Trigger.Today()
			if date != "" {
				day, err = model.ParseDate(date)
				if err != nil {
					return goerr.Wrap(err, "invalid --date", goerr.V("date", date))
				}
			}

			trigger, err := eng.uc.Trigger.CheckOn(ctx, day)
			if err != nil {
				return goerr.Wrap(err, "trigger detection failed", goerr.V("date", day))
			}
			if trigger == nil {
				logging.Default().Info("No trigger found", "date", day)
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(&checkOutput{Date: day, Trigger: trigger}); err != nil {
				return goerr.Wrap(err, "failed to write output")
			}
			return nil
		},
	}
}
