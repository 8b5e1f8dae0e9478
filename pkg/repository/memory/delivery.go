package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type deliveryRepository struct {
	mu      sync.Mutex
	records map[model.DeliveryID]*model.DeliveryRecord
	byKey   map[model.TriggerKey]model.DeliveryID
}

func newDeliveryRepository() *deliveryRepository {
	return &deliveryRepository{
		records: make(map[model.DeliveryID]*model.DeliveryRecord),
		byKey:   make(map[model.TriggerKey]model.DeliveryID),
	}
}

func (r *deliveryRepository) Claim(ctx context.Context, record *model.DeliveryRecord) (*model.DeliveryRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.byKey[record.Key()]; exists {
		return r.records[id].Copy(), false, nil
	}

	created := record.Copy()
	if created.ID == "" {
		created.ID = model.NewDeliveryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	r.records[created.ID] = created
	r.byKey[created.Key()] = created.ID

	return created.Copy(), true, nil
}

func (r *deliveryRepository) Get(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "delivery not found", goerr.V("deliveryID", id))
	}
	return rec.Copy(), nil
}

func (r *deliveryRepository) FindByKey(ctx context.Context, key model.TriggerKey) (*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.byKey[key]
	if !exists {
		return nil, nil
	}
	return r.records[id].Copy(), nil
}

func (r *deliveryRepository) List(ctx context.Context, limit int) ([]*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*model.DeliveryRecord, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, rec.Copy())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *deliveryRepository) Update(ctx context.Context, id model.DeliveryID, fn func(record *model.DeliveryRecord) error) (*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.records[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "delivery not found", goerr.V("deliveryID", id))
	}

	updated := current.Copy()
	if err := fn(updated); err != nil {
		return nil, err
	}
	// identity fields are immutable
	updated.ID = current.ID
	updated.Kind = current.Kind
	updated.Date = current.Date
	updated.CreatedAt = current.CreatedAt

	r.records[id] = updated
	return updated.Copy(), nil
}

func (r *deliveryRepository) DeleteCreatedBefore(ctx context.Context, t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, rec := range r.records {
		if rec.CreatedAt.Before(t) {
			delete(r.records, id)
			delete(r.byKey, rec.Key())
			deleted++
		}
	}
	return deleted, nil
}
