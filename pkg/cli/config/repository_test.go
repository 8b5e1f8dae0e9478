package config_test

import (
	"path/filepath"
	"testing"

	"github.com/hearth-archive/hearth/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func TestRepository_Configure(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "").Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "hearth.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQLite, path).Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite requires path", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendSQLite, "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("firestore requires project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendFirestore, "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "").Configure(t.Context())
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
