package controllers

import (
	"github.com/fabriko/shipwright/internal/domain/entities"
	"go.uber.org/dig"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register controller constructors
	if err := container.Provide(NewPublishController); err != nil {
		return err
	}
	if err := container.Provide(NewDeployController); err != nil {
		return err
	}
	if err := container.Provide(NewDestroyController); err != nil {
		return err
	}
	if err := container.Provide(NewWatchController); err != nil {
		return err
	}
	if err := container.Provide(NewTemplatesController); err != nil {
		return err
	}
	if err := container.Provide(NewControllers); err != nil {
		return err
	}

	return nil
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(
	publishController *PublishController,
	deployController *DeployController,
	destroyController *DestroyController,
	watchController *WatchController,
	templatesController *TemplatesController,
) *[]entities.Controller {
	return &[]entities.Controller{
		publishController,
		deployController,
		destroyController,
		watchController,
		templatesController,
	}
}
