package memory

import (
	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is a process-local repository. Every read returns a deep copy.
type Memory struct {
	memory   *memoryRepository
	person   *personRepository
	delivery *deliveryRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	personRepo := newPersonRepository()

	return &Memory{
		memory:   newMemoryRepository(personRepo),
		person:   personRepo,
		delivery: newDeliveryRepository(),
	}
}

func (m *Memory) Memory() interfaces.MemoryRepository {
	return m.memory
}

func (m *Memory) Person() interfaces.PersonRepository {
	return m.person
}

func (m *Memory) Delivery() interfaces.DeliveryRepository {
	return m.delivery
}

func (m *Memory) Close() error {
	return nil
}
