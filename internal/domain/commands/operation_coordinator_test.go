//go:build unit

package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/test/domain/entitybuilders"
	"github.com/fabriko/shipwright/test/infrastructure/repositorydoubles"
)

func newTestCoordinator(spy *repositorydoubles.SpyProviderRepository) *OperationCoordinator {
	repo := entities.Repository{Owner: "fabriko", Name: "platform-live", DefaultBranch: "main"}
	settings := &entities.Settings{
		Workflows: map[string]string{
			"deploy":  "deploy.yaml",
			"apply":   "apply.yaml",
			"destroy": "destroy.yaml",
		},
		Polling: entities.PollingConfig{IntervalSeconds: 1},
	}
	return NewOperationCoordinator(spy, NewPublishCommand(spy), repo, settings)
}

func TestOperationCoordinator_Trigger(t *testing.T) {
	t.Parallel()

	t.Run("should reject destructive actions without confirmation", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{}
		coordinator := newTestCoordinator(spy)

		// when
		err := coordinator.Trigger(context.Background(), entities.ActionDestroy, nil, TriggerOptions{})

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrConfirmationRequired))
		assert.Empty(t, spy.Dispatches())
	})

	t.Run("should end in error without adopting a run when dispatch fails", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{
			DispatchErr: entities.NewError(entities.ErrNotFound, "workflow file not found"),
		}
		coordinator := newTestCoordinator(spy)

		// when
		err := coordinator.Trigger(context.Background(), entities.ActionDeploy, nil, TriggerOptions{})

		// then
		require.Error(t, err)
		snap := coordinator.Snapshot(entities.ActionDeploy)
		assert.Equal(t, entities.StatusError, snap.Status)
		assert.Nil(t, snap.Run)
		assert.False(t, snap.PollActive)
		assert.Zero(t, spy.ListPolls())

		select {
		case <-coordinator.Done(entities.ActionDeploy):
		default:
			t.Fatal("done channel should be closed after a dispatch failure")
		}
	})

	t.Run("should reject a second trigger while one is in progress", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{}
		coordinator := newTestCoordinator(spy)
		defer coordinator.Shutdown()
		require.NoError(t,
			coordinator.Trigger(context.Background(), entities.ActionDeploy, nil, TriggerOptions{}))

		// when
		err := coordinator.Trigger(context.Background(), entities.ActionDeploy, nil, TriggerOptions{})

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrAlreadyRunning))
		assert.Len(t, spy.Dispatches(), 1)
	})

	t.Run("should publish the files as one commit before dispatching", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{
			WriteAccess:   true,
			PublishResult: entities.CommitResult{CommitSHA: "abc123", RefUpdated: true},
		}
		coordinator := newTestCoordinator(spy)
		defer coordinator.Shutdown()
		opts := TriggerOptions{
			Files: []entities.FileChange{{Path: "main.tf", Content: "# stack\n"}},
		}

		// when
		err := coordinator.Trigger(context.Background(), entities.ActionApply, nil, opts)

		// then
		require.NoError(t, err)
		require.Len(t, spy.PublishCalls, 1)
		assert.Equal(t, "Add generated files for apply", spy.PublishCalls[0].Message)
		require.Len(t, spy.Dispatches(), 1)
		assert.Equal(t, "apply.yaml", spy.Dispatches()[0].WorkflowFile)
		snap := coordinator.Snapshot(entities.ActionApply)
		assert.Contains(t, snap.LogLines, "published 1 file(s) as commit abc123")
	})
}

func TestOperationCoordinator_Confirmation(t *testing.T) {
	t.Parallel()

	t.Run("should reject confirmation requests for non-destructive actions", func(t *testing.T) {
		t.Parallel()

		// given
		coordinator := newTestCoordinator(&repositorydoubles.SpyProviderRepository{})

		// when
		_, err := coordinator.RequestConfirmation(entities.ActionDeploy, nil, TriggerOptions{})

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrDispatchRejected))
	})

	t.Run("should trigger on confirm and burn the token", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{}
		coordinator := newTestCoordinator(spy)
		defer coordinator.Shutdown()
		ticket, err := coordinator.RequestConfirmation(entities.ActionDestroy, nil, TriggerOptions{})
		require.NoError(t, err)
		assert.NotEmpty(t, ticket.Token)
		assert.Empty(t, spy.Dispatches(), "nothing may be dispatched before confirmation")

		// when
		confirmErr := coordinator.Confirm(context.Background(), ticket.Token)
		replayErr := coordinator.Confirm(context.Background(), ticket.Token)

		// then
		require.NoError(t, confirmErr)
		require.Len(t, spy.Dispatches(), 1)
		assert.Equal(t, "destroy.yaml", spy.Dispatches()[0].WorkflowFile)
		require.Error(t, replayErr)
		assert.True(t, entities.IsKind(replayErr, entities.ErrConfirmationRequired))
	})

	t.Run("should reject unknown tokens", func(t *testing.T) {
		t.Parallel()

		// given
		coordinator := newTestCoordinator(&repositorydoubles.SpyProviderRepository{})

		// when
		err := coordinator.Confirm(context.Background(), "deadbeef")

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrConfirmationRequired))
	})

	t.Run("should reject expired tokens", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{}
		coordinator := newTestCoordinator(spy)
		coordinator.tickets["stale"] = pendingConfirmation{
			ticket: entities.ConfirmationTicket{
				Token:     "stale",
				Action:    entities.ActionDestroy,
				IssuedAt:  time.Now().Add(-10 * time.Minute),
				ExpiresAt: time.Now().Add(-5 * time.Minute),
			},
		}

		// when
		err := coordinator.Confirm(context.Background(), "stale")

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrConfirmationRequired))
		assert.Contains(t, err.Error(), "expired")
		assert.Empty(t, spy.Dispatches())
	})
}

func TestOperationCoordinator_Reset(t *testing.T) {
	t.Parallel()

	t.Run("should reject resetting an operation that never ran", func(t *testing.T) {
		t.Parallel()

		// given
		coordinator := newTestCoordinator(&repositorydoubles.SpyProviderRepository{})

		// when
		err := coordinator.Reset(entities.ActionDeploy)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrDispatchRejected))
	})

	t.Run("should allow a new trigger after resetting a failed operation", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{
			DispatchErr: entities.NewError(entities.ErrNotFound, "workflow file not found"),
		}
		coordinator := newTestCoordinator(spy)
		defer coordinator.Shutdown()
		require.Error(t,
			coordinator.Trigger(context.Background(), entities.ActionDeploy, nil, TriggerOptions{}))

		// a terminal slot refuses new triggers until reset
		retriggerErr := coordinator.Trigger(
			context.Background(), entities.ActionDeploy, nil, TriggerOptions{})
		require.Error(t, retriggerErr)
		assert.True(t, entities.IsKind(retriggerErr, entities.ErrDispatchRejected))

		// when
		spy.DispatchErr = nil
		resetErr := coordinator.Reset(entities.ActionDeploy)
		triggerErr := coordinator.Trigger(
			context.Background(), entities.ActionDeploy, nil, TriggerOptions{})

		// then
		require.NoError(t, resetErr)
		require.NoError(t, triggerErr)
		snap := coordinator.Snapshot(entities.ActionDeploy)
		assert.Equal(t, entities.StatusDeploying, snap.Status)
		assert.NotContains(t, snap.LogLines, "workflow file not found")
	})

	t.Run("should discard updates carrying a stale generation", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{
			DispatchErr: entities.NewError(entities.ErrNotFound, "workflow file not found"),
		}
		coordinator := newTestCoordinator(spy)
		require.Error(t,
			coordinator.Trigger(context.Background(), entities.ActionDeploy, nil, TriggerOptions{}))

		// when: a poll result from before the reset arrives late
		require.NoError(t, coordinator.Reset(entities.ActionDeploy))
		coordinator.appendLog(entities.ActionDeploy, 0, "ghost update from the previous run")

		// then
		snap := coordinator.Snapshot(entities.ActionDeploy)
		assert.Equal(t, entities.StatusIdle, snap.Status)
		assert.Empty(t, snap.LogLines)
	})
}

func TestOperationCoordinator_Watch(t *testing.T) {
	t.Parallel()

	t.Run("should follow an existing run to completion", func(t *testing.T) {
		t.Parallel()

		// given
		run := entitybuilders.NewWorkflowRunBuilder().WithID(123).
			WithConclusion(entities.ConclusionSuccess).BuildWorkflowRun()
		spy := &repositorydoubles.SpyProviderRepository{
			GetRunQueue: []entities.WorkflowRun{run},
		}
		coordinator := newTestCoordinator(spy)
		defer coordinator.Shutdown()

		// when
		err := coordinator.Watch(context.Background(), entities.ActionDeploy, 123)

		// then
		require.NoError(t, err)
		select {
		case <-coordinator.Done(entities.ActionDeploy):
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not reach a terminal state in time")
		}
		snap := coordinator.Snapshot(entities.ActionDeploy)
		assert.Equal(t, entities.StatusSuccess, snap.Status)
		require.NotNil(t, snap.Run)
		assert.Equal(t, int64(123), snap.Run.ID)
		assert.Zero(t, spy.ListPolls())
		assert.Equal(t, []int64{123}, spy.FetchedRuns())
	})
}
