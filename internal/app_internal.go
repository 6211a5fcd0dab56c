package internal

import (
	"github.com/fabriko/shipwright/internal/domain/entities"
)

// AppInternal aggregates the wired controllers for the CLI bootstrap.
type AppInternal struct {
	controllers *[]entities.Controller
}

// NewAppInternal creates the application aggregate from the DI container.
func NewAppInternal(controllers *[]entities.Controller) *AppInternal {
	return &AppInternal{controllers: controllers}
}

// GetControllers returns all registered controllers.
func (it *AppInternal) GetControllers() []entities.Controller {
	return *it.controllers
}
