package interfaces

import (
	"context"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
)

// DeliveryRepository is the delivery ledger. At most one record exists per trigger key.
type DeliveryRepository interface {
	// Claim inserts record unless one with the same key exists, in a single transaction.
	// It returns the stored record and whether it was created by this call.
	Claim(ctx context.Context, record *model.DeliveryRecord) (*model.DeliveryRecord, bool, error)

	// Get retrieves a record by ID
	Get(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error)

	// FindByKey returns the record for key, or nil when there is none
	FindByKey(ctx context.Context, key model.TriggerKey) (*model.DeliveryRecord, error)

	// List returns records newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*model.DeliveryRecord, error)

	// Update applies fn to the stored record inside a transaction and persists the result
	Update(ctx context.Context, id model.DeliveryID, fn func(record *model.DeliveryRecord) error) (*model.DeliveryRecord, error)

	// DeleteCreatedBefore removes records created before t and returns how many were removed
	DeleteCreatedBefore(ctx context.Context, t time.Time) (int, error)
}
