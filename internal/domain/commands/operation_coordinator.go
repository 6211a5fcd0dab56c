package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/internal/domain/repositories"
)

// confirmationTTL is how long a destructive-action confirmation ticket
// stays valid.
const confirmationTTL = 5 * time.Minute

// TriggerOptions carries the optional publish step and dispatch target of a
// trigger. When Files is non-empty they are published as one commit before
// the workflow is dispatched.
type TriggerOptions struct {
	Files         []entities.FileChange
	CommitMessage string
	Ref           string // Empty targets the default branch
}

type pendingConfirmation struct {
	ticket entities.ConfirmationTicket
	inputs entities.WorkflowInputs
	opts   TriggerOptions
}

// OperationCoordinator is the per-operation state machine exposed to
// callers. It owns one TrackedOperation slot per action, enforces the
// idle -> deploying -> terminal lifecycle, and requires two-phase
// confirmation for destructive actions. All effects are observable only
// through the operation snapshots.
type OperationCoordinator struct {
	provider repositories.ProviderRepository
	publish  Publish
	repo     entities.Repository
	settings *entities.Settings

	mu       sync.Mutex
	ops      map[entities.Action]*entities.TrackedOperation
	trackers map[entities.Action]*RunTracker
	tickets  map[string]pendingConfirmation
	doneChs  map[entities.Action]chan struct{}
}

// NewOperationCoordinator creates a coordinator for one repository.
func NewOperationCoordinator(
	provider repositories.ProviderRepository,
	publish Publish,
	repo entities.Repository,
	settings *entities.Settings,
) *OperationCoordinator {
	return &OperationCoordinator{
		provider: provider,
		publish:  publish,
		repo:     repo,
		settings: settings,
		ops:      make(map[entities.Action]*entities.TrackedOperation),
		trackers: make(map[entities.Action]*RunTracker),
		tickets:  make(map[string]pendingConfirmation),
		doneChs:  make(map[entities.Action]chan struct{}),
	}
}

// Trigger publishes (if files are given), dispatches the action's workflow,
// and starts tracking the resulting run. Destructive actions are rejected
// here; they must go through RequestConfirmation and Confirm.
func (c *OperationCoordinator) Trigger(
	ctx context.Context,
	action entities.Action,
	inputs entities.WorkflowInputs,
	opts TriggerOptions,
) error {
	if action.IsDestructive() {
		return entities.NewError(entities.ErrConfirmationRequired,
			fmt.Sprintf("action %q is destructive and must be confirmed first", action))
	}
	return c.trigger(ctx, action, inputs, opts)
}

// RequestConfirmation issues a single-use, expiring ticket for a
// destructive action. The ticket is bound to the given inputs and options;
// Confirm performs the actual trigger.
func (c *OperationCoordinator) RequestConfirmation(
	action entities.Action,
	inputs entities.WorkflowInputs,
	opts TriggerOptions,
) (entities.ConfirmationTicket, error) {
	if !action.IsDestructive() {
		return entities.ConfirmationTicket{}, entities.NewError(entities.ErrDispatchRejected,
			fmt.Sprintf("action %q does not require confirmation", action))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if op := c.ops[action]; op != nil && op.Status == entities.StatusDeploying {
		return entities.ConfirmationTicket{}, entities.NewError(entities.ErrAlreadyRunning,
			fmt.Sprintf("a %s operation is already in progress", action))
	}

	token, err := newConfirmationToken()
	if err != nil {
		return entities.ConfirmationTicket{}, fmt.Errorf("failed to issue confirmation token: %w", err)
	}

	now := time.Now()
	ticket := entities.ConfirmationTicket{
		Token:  token,
		Action: action,
		Description: fmt.Sprintf(
			"This will run %q on %s and cannot be undone. Confirm within %s.",
			action, c.repo.FullName(), confirmationTTL),
		IssuedAt:  now,
		ExpiresAt: now.Add(confirmationTTL),
	}
	c.tickets[token] = pendingConfirmation{ticket: ticket, inputs: inputs, opts: opts}
	return ticket, nil
}

// Confirm consumes a confirmation ticket and triggers the bound action.
// Tokens are single-use: a second Confirm with the same token fails.
func (c *OperationCoordinator) Confirm(ctx context.Context, token string) error {
	c.mu.Lock()
	pending, ok := c.tickets[token]
	delete(c.tickets, token)
	c.mu.Unlock()

	if !ok {
		return entities.NewError(entities.ErrConfirmationRequired,
			"unknown or already used confirmation token")
	}
	if pending.ticket.Expired(time.Now()) {
		return entities.NewError(entities.ErrConfirmationRequired,
			"confirmation token expired, request a new one")
	}

	return c.trigger(ctx, pending.ticket.Action, pending.inputs, pending.opts)
}

// Reset returns a terminal operation slot to idle and clears its run and
// log lines. Resetting a non-terminal operation is rejected.
func (c *OperationCoordinator) Reset(action entities.Action) error {
	c.mu.Lock()
	op := c.ops[action]
	if op == nil || !op.Status.Terminal() {
		c.mu.Unlock()
		return entities.NewError(entities.ErrDispatchRejected,
			fmt.Sprintf("cannot reset %s: operation is not in a terminal state", action))
	}
	op.Reset()
	tracker := c.trackers[action]
	delete(c.trackers, action)
	delete(c.doneChs, action)
	c.mu.Unlock()

	if tracker != nil {
		tracker.Stop()
	}
	return nil
}

// Snapshot returns a point-in-time copy of the action's operation.
func (c *OperationCoordinator) Snapshot(action entities.Action) entities.OperationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := c.ops[action]
	if op == nil {
		return entities.OperationSnapshot{Action: action, Status: entities.StatusIdle}
	}
	return op.Snapshot()
}

// Done returns a channel closed when the action's current operation reaches
// a terminal state. For operations not deploying it is already closed.
func (c *OperationCoordinator) Done(action entities.Action) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.doneChs[action]; ok {
		return ch
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Watch starts tracking an already-running workflow run under the given
// action slot, without dispatching anything.
func (c *OperationCoordinator) Watch(ctx context.Context, action entities.Action, runID int64) error {
	workflowFile, err := c.settings.WorkflowFor(action)
	if err != nil {
		return err
	}

	gen, err := c.beginDeploy(action, fmt.Sprintf("watching %s run #%d", action, runID))
	if err != nil {
		return err
	}

	tracker := NewRunTracker(c.provider, c.repo, workflowFile, action, gen,
		&operationSink{coordinator: c, action: action}, c.settings.Polling)
	tracker.AdoptExisting(runID)
	c.startTracker(action, tracker)
	return nil
}

// Shutdown stops every active tracker. Operations keep their last status.
func (c *OperationCoordinator) Shutdown() {
	c.mu.Lock()
	trackers := make([]*RunTracker, 0, len(c.trackers))
	for _, tracker := range c.trackers {
		trackers = append(trackers, tracker)
	}
	c.mu.Unlock()

	for _, tracker := range trackers {
		tracker.Stop()
	}
}

func (c *OperationCoordinator) trigger(
	ctx context.Context,
	action entities.Action,
	inputs entities.WorkflowInputs,
	opts TriggerOptions,
) error {
	workflowFile, err := c.settings.WorkflowFor(action)
	if err != nil {
		return err
	}

	gen, err := c.beginDeploy(action, fmt.Sprintf("triggering %s on %s", action, c.repo.FullName()))
	if err != nil {
		return err
	}

	if len(opts.Files) > 0 {
		message := opts.CommitMessage
		if message == "" {
			message = fmt.Sprintf("Add generated files for %s", action)
		}
		result, publishErr := c.publish.Execute(ctx, c.repo, entities.CommitRequest{
			Branch:  opts.Ref,
			Message: message,
			Files:   opts.Files,
		})
		if publishErr != nil {
			c.fail(action, gen, fmt.Sprintf("%s failed: publish: %v", action, publishErr))
			return publishErr
		}
		c.appendLog(action, gen, fmt.Sprintf("published %d file(s) as commit %s",
			len(opts.Files), result.CommitSHA))
	}

	if dispatchErr := c.provider.DispatchWorkflow(
		ctx, c.repo, workflowFile, opts.Ref, inputs,
	); dispatchErr != nil {
		// The workflow never started: the operation ends in error without
		// ever adopting a run id, and no polling ticks occur.
		c.fail(action, gen, fmt.Sprintf("%s failed: dispatch: %v", action, dispatchErr))
		return dispatchErr
	}
	c.appendLog(action, gen, fmt.Sprintf("dispatched workflow %s", workflowFile))

	tracker := NewRunTracker(c.provider, c.repo, workflowFile, action, gen,
		&operationSink{coordinator: c, action: action}, c.settings.Polling)
	c.startTracker(action, tracker)

	logger.Infof("[%s] Dispatched %s on %s, tracking run", action, workflowFile, c.repo.FullName())
	return nil
}

// beginDeploy moves the action slot from idle to deploying and returns the
// generation the caller must tag all subsequent updates with.
func (c *OperationCoordinator) beginDeploy(action entities.Action, firstLine string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := c.ops[action]
	if op == nil {
		op = entities.NewTrackedOperation(action)
		c.ops[action] = op
	}

	switch {
	case op.Status == entities.StatusDeploying:
		return 0, entities.NewError(entities.ErrAlreadyRunning,
			fmt.Sprintf("a %s operation is already in progress", action))
	case op.Status.Terminal():
		return 0, entities.NewError(entities.ErrDispatchRejected,
			fmt.Sprintf("%s finished with %s, reset before triggering again", action, op.Status))
	}

	op.Status = entities.StatusDeploying
	op.AppendLog(firstLine)
	c.doneChs[action] = make(chan struct{})
	return op.Generation, nil
}

func (c *OperationCoordinator) startTracker(action entities.Action, tracker *RunTracker) {
	c.mu.Lock()
	c.trackers[action] = tracker
	if op := c.ops[action]; op != nil {
		op.PollActive = true
	}
	c.mu.Unlock()

	// The tracker outlives the triggering call; its lifetime is bound to
	// the coordinator (Stop/Reset/Shutdown), not to the caller's context.
	tracker.Start(context.Background())
}

// withOp runs fn on the action's operation under the lock, discarding the
// call when the generation no longer matches (stale poll result).
func (c *OperationCoordinator) withOp(
	action entities.Action,
	generation uint64,
	fn func(op *entities.TrackedOperation),
) {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := c.ops[action]
	if op == nil || op.Generation != generation {
		return
	}
	fn(op)
}

func (c *OperationCoordinator) appendLog(action entities.Action, generation uint64, line string) {
	c.withOp(action, generation, func(op *entities.TrackedOperation) {
		op.AppendLog(line)
	})
}

func (c *OperationCoordinator) fail(action entities.Action, generation uint64, line string) {
	c.completeOp(action, generation, entities.StatusError, line)
}

func (c *OperationCoordinator) completeOp(
	action entities.Action,
	generation uint64,
	status entities.OperationStatus,
	line string,
) {
	c.withOp(action, generation, func(op *entities.TrackedOperation) {
		op.Status = status
		op.AppendLog(line)
		op.PollActive = false
		if ch, ok := c.doneChs[action]; ok {
			close(ch)
			delete(c.doneChs, action)
		}
	})
}

// operationSink adapts the coordinator to the tracker's sink interface,
// carrying the action identity so stale results cannot cross slots.
type operationSink struct {
	coordinator *OperationCoordinator
	action      entities.Action
}

func (s *operationSink) AdoptRun(generation uint64, run entities.WorkflowRun) {
	s.coordinator.withOp(s.action, generation, func(op *entities.TrackedOperation) {
		bound := run
		op.Run = &bound
	})
}

func (s *operationSink) UpdateRun(generation uint64, run entities.WorkflowRun) {
	s.coordinator.withOp(s.action, generation, func(op *entities.TrackedOperation) {
		bound := run
		op.Run = &bound
	})
}

func (s *operationSink) AppendLog(generation uint64, line string) {
	s.coordinator.appendLog(s.action, generation, line)
}

func (s *operationSink) Complete(generation uint64, status entities.OperationStatus, line string) {
	s.coordinator.completeOp(s.action, generation, status, line)
}

func newConfirmationToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
