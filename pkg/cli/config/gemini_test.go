package config_test

import (
	"context"
	"testing"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/hearth-archive/hearth/pkg/service/companion"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

type embedOnlyClient struct {
	calls int
}

func (c *embedOnlyClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, context.Canceled
}

func (c *embedOnlyClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	c.calls++
	return [][]float64{make([]float64, dimension)}, nil
}

func TestGemini_Configure(t *testing.T) {
	t.Run("returns nil client when project ID is empty", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("falls back to disabled companion", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1")
		svc, closer, err := cfg.ConfigureCompanion(t.Context(), nil)
		gt.NoError(t, err).Required()
		defer closer()

		_, ok := svc.(companion.Disabled)
		gt.True(t, ok)
		gt.Value(t, svc.Embed(t.Context(), "beach").Status).Equal(companion.StatusFailed)
	})

	t.Run("returns flags", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "")
		gt.A(t, cfg.Flags()).Length(3)
	})
}

func TestNewCompanion_Cache(t *testing.T) {
	llm := &embedOnlyClient{}
	svc, closer, err := config.NewCompanion(llm, nil, 4096)
	gt.NoError(t, err).Required()
	defer closer()

	gt.True(t, svc.Embed(t.Context(), "beach").OK())
	gt.Value(t, llm.calls).Equal(1)
}

func TestNewCompanion_WithoutCache(t *testing.T) {
	llm := &embedOnlyClient{}
	svc, closer, err := config.NewCompanion(llm, nil, 0)
	gt.NoError(t, err).Required()
	defer closer()

	gt.True(t, svc.Embed(t.Context(), "beach").OK())
	gt.True(t, svc.Embed(t.Context(), "beach").OK())
	gt.Value(t, llm.calls).Equal(2)
}
