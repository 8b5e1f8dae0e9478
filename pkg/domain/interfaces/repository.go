package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Memory() MemoryRepository
	Person() PersonRepository
	Delivery() DeliveryRepository

	// Close releases backend resources
	Close() error
}
