package commands

import (
	"context"

	"github.com/fabriko/shipwright/internal/domain/entities"
	infraRepos "github.com/fabriko/shipwright/internal/infrastructure/repositories"
)

// Watch is the interface for the watch command.
type Watch interface {
	Execute(ctx context.Context, settings *entities.Settings, action entities.Action, runID int64) error
}

// WatchCommand follows an already-running workflow run to a terminal state
// without dispatching anything.
type WatchCommand struct {
	registry *infraRepos.ProviderRegistry
}

// NewWatchCommand creates a new WatchCommand with the given registry.
func NewWatchCommand(registry *infraRepos.ProviderRegistry) *WatchCommand {
	return &WatchCommand{registry: registry}
}

// Execute attaches a tracker to the given run and streams its progress.
func (it *WatchCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	action entities.Action,
	runID int64,
) error {
	provider, repo, err := resolveTarget(ctx, it.registry, settings)
	if err != nil {
		return err
	}

	coordinator := NewOperationCoordinator(provider, NewPublishCommand(provider), repo, settings)
	defer coordinator.Shutdown()

	if err = coordinator.Watch(ctx, action, runID); err != nil {
		return err
	}
	return streamUntilDone(ctx, coordinator, action)
}
