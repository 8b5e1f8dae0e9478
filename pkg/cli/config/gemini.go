package config

import (
	"context"
	"log/slog"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	domainConfig "github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"
)

// defaultCacheElements holds about a thousand query vectors
const defaultCacheElements = 1000 * model.EmbeddingDimension

// Gemini holds configuration for the Gemini LLM client
type Gemini struct {
	projectID     string
	location      string
	cacheElements int64
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "Gemini",
			Sources:     cli.EnvVars("HEARTH_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("HEARTH_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.Int64Flag{
			Name:        "embedding-cache-size",
			Usage:       "Query embedding cache capacity in vector elements (0 disables the cache)",
			Category:    "Gemini",
			Value:       defaultCacheElements,
			Sources:     cli.EnvVars("HEARTH_EMBEDDING_CACHE_SIZE"),
			Destination: &g.cacheElements,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.Int64("cache_elements", g.cacheElements),
	}
}

// Configure creates the Gemini LLM client from the configured flags.
// Returns nil if projectID is not configured.
func (g *Gemini) Configure(ctx context.Context) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := gemini.New(ctx, g.projectID, g.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	return client, nil
}

// ConfigureCompanion builds the AI boundary. Without a project every call
// fails softly through companion.Disabled. The returned closer releases the cache.
func (g *Gemini) ConfigureCompanion(ctx context.Context, ranker *domainConfig.RankerConfig) (companion.Service, func(), error) {
	noop := func() {}

	llmClient, err := g.Configure(ctx)
	if err != nil {
		return nil, noop, err
	}
	if llmClient == nil {
		logging.Default().Warn("Gemini project not configured, search and presentation are disabled")
		return companion.Disabled{}, noop, nil
	}

	return newCompanion(llmClient, ranker, g.cacheElements)
}

func newCompanion(llmClient gollem.LLMClient, ranker *domainConfig.RankerConfig, cacheElements int64) (companion.Service, func(), error) {
	noop := func() {}
	if ranker == nil {
		ranker = domainConfig.DefaultRankerConfig()
	}

	opts := []companion.Option{
		companion.WithEmbedTimeout(ranker.EmbedTimeout),
		companion.WithChatTimeout(ranker.ChatTimeout),
	}

	closer := noop
	if cacheElements > 0 {
		cache, err := companion.NewEmbeddingCache(cacheElements)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to create embedding cache")
		}
		opts = append(opts, companion.WithCache(cache))
		closer = cache.Close
	}

	svc, err := companion.New(llmClient, opts...)
	if err != nil {
		closer()
		return nil, noop, goerr.Wrap(err, "failed to create companion service")
	}
	return svc, closer, nil
}
