package cli

import (
	"context"
	"log/slog"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/repository/firestore"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/hearth-archive/hearth/pkg/utils/safe"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var (
		projectID  string
		databaseID string
		prefix     string
		dryRun     bool
	)

	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the Firestore vector index used for memory search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID",
				Required:    true,
				Sources:     cli.EnvVars("HEARTH_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Value:       "(default)",
				Sources:     cli.EnvVars("HEARTH_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix for every Firestore collection name",
				Sources:     cli.EnvVars("HEARTH_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &prefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Print the migration plan without applying it",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			logger := logging.Default().With(
				slog.String("project_id", projectID),
				slog.String("database_id", databaseID),
				slog.String("collection_prefix", prefix),
			)

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client",
					goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
			}
			defer safe.Close(ctx, client)

			indexes := getIndexConfig(prefix)
			if dryRun {
				return planMigration(ctx, logger, client, indexes)
			}

			logger.Info("Applying index migration")
			if err := client.Migrate(ctx, indexes); err != nil {
				return goerr.Wrap(err, "failed to apply index migration")
			}
			logger.Info("Index migration applied")
			return nil
		},
	}
}

func planMigration(ctx context.Context, logger *slog.Logger, client *fireconf.Client, indexes *fireconf.Config) error {
	plan, err := client.GetMigrationPlan(ctx, indexes)
	if err != nil {
		return goerr.Wrap(err, "failed to build migration plan")
	}

	if len(plan.Steps) == 0 {
		logger.Info("Indexes are up to date")
		return nil
	}
	for _, step := range plan.Steps {
		logger.Info("Planned step",
			"collection", step.Collection,
			"operation", step.Operation,
			"description", step.Description,
			"destructive", step.Destructive,
		)
	}
	return nil
}

// getIndexConfig declares the vector index over memory embeddings.
// Ledger and person queries only need single-field indexes, which Firestore creates automatically.
func getIndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.CollectionName(prefix, firestore.MemoriesCollection),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{
								Path:   "Embedding",
								Vector: &fireconf.VectorConfig{Dimension: model.EmbeddingDimension},
							},
						},
					},
				},
			},
		},
	}
}
