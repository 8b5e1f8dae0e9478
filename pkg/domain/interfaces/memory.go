package interfaces

import (
	"context"

	"github.com/hearth-archive/hearth/pkg/domain/model"
)

// MemoryRepository defines the interface for Memory data persistence.
// Every returned memory has its People hydrated.
type MemoryRepository interface {
	// Create stores a new memory. People are referenced by ID only.
	Create(ctx context.Context, memory *model.Memory) (*model.Memory, error)

	// Get retrieves a memory by ID
	Get(ctx context.Context, id model.MemoryID) (*model.Memory, error)

	// GetMany retrieves memories in the order of ids. Unknown IDs are skipped.
	GetMany(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error)

	// FindByDateKeys returns memories whose HappenedAt month-day is one of keys
	FindByDateKeys(ctx context.Context, keys []model.MonthDay) ([]*model.Memory, error)

	// FindByScoreThreshold returns memories with ProactiveScore >= minScore
	FindByScoreThreshold(ctx context.Context, minScore float64) ([]*model.Memory, error)

	// FindEmbeddings returns the vector of every memory that has one
	FindEmbeddings(ctx context.Context) ([]*model.MemoryEmbedding, error)

	// FindByPersonIDs returns memories tagged with any of personIDs
	FindByPersonIDs(ctx context.Context, personIDs []model.PersonID) ([]*model.Memory, error)
}
