package repositories

import (
	ghRepo "github.com/fabriko/shipwright/internal/infrastructure/repositories/github"
	"go.uber.org/dig"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register provider registry with all provider factories
	if err := container.Provide(func() *ProviderRegistry {
		reg := NewProviderRegistry()
		reg.Register("github", ghRepo.NewGitHubProviderRepository)
		return reg
	}); err != nil {
		return err
	}

	return nil
}
