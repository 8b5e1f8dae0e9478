package interfaces

import (
	"context"

	"github.com/hearth-archive/hearth/pkg/domain/model"
)

// PersonRepository defines the interface for Person data persistence
type PersonRepository interface {
	Create(ctx context.Context, person *model.Person) (*model.Person, error)
	Get(ctx context.Context, id model.PersonID) (*model.Person, error)
	List(ctx context.Context) ([]*model.Person, error)
}
