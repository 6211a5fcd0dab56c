package commands

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/fabriko/shipwright/internal/domain/entities"
	domainRepos "github.com/fabriko/shipwright/internal/domain/repositories"
	infraRepos "github.com/fabriko/shipwright/internal/infrastructure/repositories"
)

// Trigger is the interface for the trigger command (deploy/destroy flows).
type Trigger interface {
	Execute(ctx context.Context, settings *entities.Settings, opts TriggerRunOptions) error
}

// TriggerRunOptions holds runtime options for a single triggered action.
type TriggerRunOptions struct {
	Action        entities.Action
	Inputs        entities.WorkflowInputs
	Files         []entities.FileChange // Published before dispatch when non-empty
	CommitMessage string
	Ref           string // If set, overrides the configured branch

	// Confirm is consulted for destructive actions; returning false aborts.
	Confirm func(ticket entities.ConfirmationTicket) bool
}

// TriggerCommand orchestrates the full wizard flow: publish generated files,
// dispatch the action's workflow, and follow the run to a terminal state.
type TriggerCommand struct {
	registry *infraRepos.ProviderRegistry
}

// NewTriggerCommand creates a new TriggerCommand with the given registry.
func NewTriggerCommand(registry *infraRepos.ProviderRegistry) *TriggerCommand {
	return &TriggerCommand{registry: registry}
}

// Execute runs the action end to end and returns once the operation reached
// a terminal state. A failed run is returned as a RunFailed error.
func (it *TriggerCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts TriggerRunOptions,
) error {
	provider, repo, err := resolveTarget(ctx, it.registry, settings)
	if err != nil {
		return err
	}

	ref := opts.Ref
	if ref == "" {
		ref = settings.Repository.Branch
	}

	coordinator := NewOperationCoordinator(provider, NewPublishCommand(provider), repo, settings)
	defer coordinator.Shutdown()

	triggerOpts := TriggerOptions{
		Files:         opts.Files,
		CommitMessage: opts.CommitMessage,
		Ref:           ref,
	}

	if opts.Action.IsDestructive() {
		ticket, confirmErr := coordinator.RequestConfirmation(opts.Action, opts.Inputs, triggerOpts)
		if confirmErr != nil {
			return confirmErr
		}
		if opts.Confirm == nil || !opts.Confirm(ticket) {
			return entities.NewError(entities.ErrConfirmationRequired,
				fmt.Sprintf("%s was not confirmed", opts.Action))
		}
		if err = coordinator.Confirm(ctx, ticket.Token); err != nil {
			return err
		}
	} else {
		if err = coordinator.Trigger(ctx, opts.Action, opts.Inputs, triggerOpts); err != nil {
			return err
		}
	}

	return streamUntilDone(ctx, coordinator, opts.Action)
}

// streamUntilDone mirrors the operation's log stream to the logger until the
// operation reaches a terminal state.
func streamUntilDone(
	ctx context.Context,
	coordinator *OperationCoordinator,
	action entities.Action,
) error {
	done := coordinator.Done(action)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	printed := 0
	flush := func() {
		snap := coordinator.Snapshot(action)
		for _, line := range snap.LogLines[printed:] {
			logger.Infof("[%s] %s", action, line)
		}
		printed = len(snap.LogLines)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return fmt.Errorf("stopped following %s: %w", action, ctx.Err())
		case <-done:
			flush()
			snap := coordinator.Snapshot(action)
			if snap.Status == entities.StatusError {
				return runFailedError(snap)
			}
			return nil
		case <-ticker.C:
			flush()
		}
	}
}

// runFailedError builds the caller-facing error for a failed operation,
// retaining the run's conclusion and external URL for diagnostics.
func runFailedError(snap entities.OperationSnapshot) error {
	message := fmt.Sprintf("%s ended in error", snap.Action)
	if snap.Run != nil {
		conclusion := snap.Run.Conclusion
		if conclusion == entities.ConclusionNone {
			conclusion = "null"
		}
		message = fmt.Sprintf("%s ended in error (conclusion: %s, logs: %s)",
			snap.Action, conclusion, snap.Run.URL)
	}
	return entities.NewError(entities.ErrRunFailed, message)
}

// resolveTarget builds the configured provider and resolves the target
// repository metadata.
func resolveTarget(
	ctx context.Context,
	registry *infraRepos.ProviderRegistry,
	settings *entities.Settings,
) (domainRepos.ProviderRepository, entities.Repository, error) {
	provider, err := registry.Get(settings.Provider.Type, settings.Provider.Token)
	if err != nil {
		return nil, entities.Repository{}, fmt.Errorf("failed to initialize provider: %w", err)
	}

	repo, err := provider.GetRepository(ctx, settings.Repository.Owner, settings.Repository.Name)
	if err != nil {
		return nil, entities.Repository{}, err
	}
	return provider, repo, nil
}
