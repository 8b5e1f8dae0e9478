package config_test

import (
	"testing"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func TestSlack_Configure(t *testing.T) {
	t.Run("disabled when nothing is set", func(t *testing.T) {
		cfg := config.NewSlackForTest("", "")
		gt.False(t, cfg.IsConfigured())
		n, err := cfg.Configure()
		gt.NoError(t, err)
		gt.Value(t, n).Nil()
	})

	t.Run("token without channel", func(t *testing.T) {
		_, err := config.NewSlackForTest("xoxb-test", "").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("channel without token", func(t *testing.T) {
		_, err := config.NewSlackForTest("", "C123").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("configured", func(t *testing.T) {
		cfg := config.NewSlackForTest("xoxb-test", "C123")
		gt.True(t, cfg.IsConfigured())
		n, err := cfg.Configure()
		gt.NoError(t, err)
		gt.Value(t, n).NotNil()
	})
}
