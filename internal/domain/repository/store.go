package repository

// Store combines all repository interfaces
type Store interface {
	RunRepository
	ResultRepository

	// Close closes the database connection
	Close() error

	// Ping checks database connectivity
	Ping() error
}
