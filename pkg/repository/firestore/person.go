package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type personDoc struct {
	ID           string    `firestore:"ID"`
	Name         string    `firestore:"Name"`
	Relationship string    `firestore:"Relationship"`
	CreatedAt    time.Time `firestore:"CreatedAt"`
}

func toPersonDoc(p *model.Person) *personDoc {
	return &personDoc{
		ID:           string(p.ID),
		Name:         p.Name,
		Relationship: p.Relationship,
		CreatedAt:    p.CreatedAt,
	}
}

func fromPersonDoc(d *personDoc) *model.Person {
	return &model.Person{
		ID:           model.PersonID(d.ID),
		Name:         d.Name,
		Relationship: d.Relationship,
		CreatedAt:    d.CreatedAt,
	}
}

type personRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newPersonRepository(client *firestore.Client) *personRepository {
	return &personRepository{client: client}
}

func (r *personRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(CollectionName(r.collectionPrefix, PeopleCollection))
}

func (r *personRepository) Create(ctx context.Context, person *model.Person) (*model.Person, error) {
	created := *person
	if created.ID == "" {
		created.ID = model.NewPersonID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, toPersonDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create person", goerr.V("personID", created.ID))
	}
	return &created, nil
}

func (r *personRepository) Get(ctx context.Context, id model.PersonID) (*model.Person, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "person not found", goerr.V("personID", id))
		}
		return nil, goerr.Wrap(err, "failed to get person", goerr.V("personID", id))
	}

	var d personDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal person", goerr.V("personID", id))
	}
	return fromPersonDoc(&d), nil
}

func (r *personRepository) List(ctx context.Context) ([]*model.Person, error) {
	iter := r.collection().OrderBy("Name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	people := make([]*model.Person, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate people")
		}

		var d personDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal person")
		}
		people = append(people, fromPersonDoc(&d))
	}
	return people, nil
}

// resolve loads the people among ids that exist
func (r *personRepository) resolve(ctx context.Context, ids []model.PersonID) (map[model.PersonID]*model.Person, error) {
	result := make(map[model.PersonID]*model.Person, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.collection().Doc(string(id))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get people", goerr.V("count", len(ids)))
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var d personDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal person", goerr.V("personID", doc.Ref.ID))
		}
		result[model.PersonID(d.ID)] = fromPersonDoc(&d)
	}
	return result, nil
}
