package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type personRepository struct {
	mu     sync.RWMutex
	people map[model.PersonID]*model.Person
}

func newPersonRepository() *personRepository {
	return &personRepository{
		people: make(map[model.PersonID]*model.Person),
	}
}

func copyPerson(p *model.Person) *model.Person {
	copied := *p
	return &copied
}

func (r *personRepository) Create(ctx context.Context, person *model.Person) (*model.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyPerson(person)
	if created.ID == "" {
		created.ID = model.NewPersonID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	r.people[created.ID] = created

	return copyPerson(created), nil
}

func (r *personRepository) Get(ctx context.Context, id model.PersonID) (*model.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.people[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "person not found", goerr.V("personID", id))
	}
	return copyPerson(p), nil
}

func (r *personRepository) List(ctx context.Context) ([]*model.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Person, 0, len(r.people))
	for _, p := range r.people {
		result = append(result, copyPerson(p))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// resolve returns copies of the known people among ids, keeping order
func (r *personRepository) resolve(ids []model.PersonID) []*model.Person {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.people[id]; ok {
			result = append(result, copyPerson(p))
		}
	}
	return result
}
