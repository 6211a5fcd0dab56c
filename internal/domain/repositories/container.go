package repositories

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all repository interface providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	return nil // Implementations are provided by the infrastructure layer
}
