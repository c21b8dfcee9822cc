package port

import (
	"github.com/vertextoedge/pagemirror/internal/domain/repository"
)

// RunRepository is an alias to domain repository interface
type RunRepository = repository.RunRepository

// ResultRepository is an alias to domain repository interface
type ResultRepository = repository.ResultRepository

// Store is an alias to domain repository interface
type Store = repository.Store
