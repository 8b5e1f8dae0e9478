package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// storedMemory keeps person tags as IDs; they are resolved on every read
type storedMemory struct {
	memory    *model.Memory
	personIDs []model.PersonID
}

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[model.MemoryID]*storedMemory
	people  *personRepository
}

func newMemoryRepository(people *personRepository) *memoryRepository {
	return &memoryRepository{
		entries: make(map[model.MemoryID]*storedMemory),
		people:  people,
	}
}

func (r *memoryRepository) Create(ctx context.Context, mem *model.Memory) (*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := mem.Copy()
	if created.ID == "" {
		created.ID = model.NewMemoryID()
	}
	if _, exists := r.entries[created.ID]; exists {
		return nil, goerr.New("memory already exists", goerr.V("memoryID", created.ID))
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	stored := &storedMemory{memory: created, personIDs: created.PersonIDs()}
	created.People = nil
	r.entries[created.ID] = stored

	return r.hydrate(stored), nil
}

func (r *memoryRepository) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.entries[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "memory not found", goerr.V("memoryID", id))
	}
	return r.hydrate(stored), nil
}

func (r *memoryRepository) GetMany(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		if stored, exists := r.entries[id]; exists {
			result = append(result, r.hydrate(stored))
		}
	}
	return result, nil
}

func (r *memoryRepository) FindByDateKeys(ctx context.Context, keys []model.MonthDay) ([]*model.Memory, error) {
	want := make(map[model.MonthDay]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}

	return r.filter(func(m *storedMemory) bool {
		if m.memory.HappenedAt == nil {
			return false
		}
		_, ok := want[m.memory.HappenedAt.MonthDay()]
		return ok
	}), nil
}

func (r *memoryRepository) FindByScoreThreshold(ctx context.Context, minScore float64) ([]*model.Memory, error) {
	return r.filter(func(m *storedMemory) bool {
		return m.memory.ProactiveScore >= minScore
	}), nil
}

func (r *memoryRepository) FindEmbeddings(ctx context.Context) ([]*model.MemoryEmbedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.MemoryEmbedding, 0, len(r.entries))
	for _, m := range r.entries {
		if len(m.memory.Embedding) == 0 {
			continue
		}
		vec := make([]float32, len(m.memory.Embedding))
		copy(vec, m.memory.Embedding)
		result = append(result, &model.MemoryEmbedding{MemoryID: m.memory.ID, Vector: vec})
	}
	return result, nil
}

func (r *memoryRepository) FindByPersonIDs(ctx context.Context, personIDs []model.PersonID) ([]*model.Memory, error) {
	want := make(map[model.PersonID]struct{}, len(personIDs))
	for _, id := range personIDs {
		want[id] = struct{}{}
	}

	return r.filter(func(m *storedMemory) bool {
		for _, id := range m.personIDs {
			if _, ok := want[id]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (r *memoryRepository) filter(match func(m *storedMemory) bool) []*model.Memory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Memory, 0)
	for _, m := range r.entries {
		if match(m) {
			result = append(result, r.hydrate(m))
		}
	}
	model.SortByRecency(result)
	return result
}

// hydrate must be called with r.mu held
func (r *memoryRepository) hydrate(stored *storedMemory) *model.Memory {
	m := stored.memory.Copy()
	m.People = r.people.resolve(stored.personIDs)
	return m
}
