package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

type Firestore struct {
	client   *firestore.Client
	memory   *memoryRepository
	person   *personRepository
	delivery *deliveryRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, e.g. "test" -> "test_memories"
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.memory.collectionPrefix = prefix
		f.person.collectionPrefix = prefix
		f.delivery.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	personRepo := newPersonRepository(client)
	f := &Firestore{
		client:   client,
		memory:   newMemoryRepository(client, personRepo),
		person:   personRepo,
		delivery: newDeliveryRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Memory() interfaces.MemoryRepository {
	return f.memory
}

func (f *Firestore) Person() interfaces.PersonRepository {
	return f.person
}

func (f *Firestore) Delivery() interfaces.DeliveryRepository {
	return f.delivery
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Collection base names
const (
	MemoriesCollection   = "memories"
	PeopleCollection     = "people"
	DeliveriesCollection = "deliveries"
)

// CollectionName returns the collection name used for base under prefix
func CollectionName(prefix, base string) string {
	if prefix != "" {
		return prefix + "_" + base
	}
	return base
}
