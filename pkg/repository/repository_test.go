package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/repository/firestore"
	"github.com/hearth-archive/hearth/pkg/repository/memory"
	"github.com/hearth-archive/hearth/pkg/repository/sqlite"
	"github.com/m-mizutani/gt"
)

type repoFactory func(t *testing.T) interfaces.Repository

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "hearth.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	// every test gets its own collections
	prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

var backends = map[string]repoFactory{
	"memory":    newMemoryRepository,
	"sqlite":    newSQLiteRepository,
	"firestore": newFirestoreRepository,
}

func runForEachBackend(t *testing.T, suite func(t *testing.T, newRepo repoFactory)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			suite(t, factory)
		})
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, memory.ErrNotFound) ||
		errors.Is(err, sqlite.ErrNotFound) ||
		errors.Is(err, firestore.ErrNotFound)
}
