package config_test

import (
	"testing"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func TestSentry_Configure(t *testing.T) {
	t.Run("disabled without DSN", func(t *testing.T) {
		flush, err := config.NewSentryForTest("").Configure()
		gt.NoError(t, err).Required()
		flush()
	})

	t.Run("malformed DSN", func(t *testing.T) {
		_, err := config.NewSentryForTest("not a dsn").Configure()
		gt.Value(t, err).NotNil()
	})
}
