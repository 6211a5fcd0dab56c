//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriko/shipwright/internal/domain/commands"
	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/test/domain/entitybuilders"
	"github.com/fabriko/shipwright/test/infrastructure/repositorydoubles"
)

func TestPublishCommand_Execute(t *testing.T) {
	t.Parallel()

	repo := entities.Repository{Owner: "fabriko", Name: "platform-live", DefaultBranch: "main"}

	t.Run("should do nothing when the file set is empty", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{WriteAccess: true}
		command := commands.NewPublishCommand(spy)
		req := entitybuilders.NewCommitRequestBuilder().WithFiles().BuildCommitRequest()

		// when
		result, err := command.Execute(context.Background(), repo, req)

		// then
		require.NoError(t, err)
		assert.Empty(t, result.CommitSHA)
		assert.Zero(t, spy.AccessChecks)
		assert.Empty(t, spy.PublishCalls)
	})

	t.Run("should reject invalid terraform before touching the provider", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{WriteAccess: true}
		command := commands.NewPublishCommand(spy)
		req := entitybuilders.NewCommitRequestBuilder().
			WithFiles(entities.FileChange{Path: "main.tf", Content: "resource \"x\" {"}).
			BuildCommitRequest()

		// when
		_, err := command.Execute(context.Background(), repo, req)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrDispatchRejected))
		assert.Zero(t, spy.AccessChecks)
		assert.Empty(t, spy.PublishCalls)
	})

	t.Run("should reject invalid yaml manifests", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{WriteAccess: true}
		command := commands.NewPublishCommand(spy)
		req := entitybuilders.NewCommitRequestBuilder().
			WithFiles(entities.FileChange{Path: "deploy.yaml", Content: "key: [unclosed"}).
			BuildCommitRequest()

		// when
		_, err := command.Execute(context.Background(), repo, req)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrDispatchRejected))
		assert.Empty(t, spy.PublishCalls)
	})

	t.Run("should return access denied when write access is explicitly false", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{WriteAccess: false}
		command := commands.NewPublishCommand(spy)
		req := entitybuilders.NewCommitRequestBuilder().BuildCommitRequest()

		// when
		_, err := command.Execute(context.Background(), repo, req)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ErrAccessDenied))
		assert.Empty(t, spy.PublishCalls)
	})

	t.Run("should treat a failed access preflight as advisory", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{
			WriteAccessErr: errors.New("permissions endpoint unavailable"),
			PublishResult:  entities.CommitResult{CommitSHA: "abc123", RefUpdated: true},
		}
		command := commands.NewPublishCommand(spy)
		req := entitybuilders.NewCommitRequestBuilder().BuildCommitRequest()

		// when
		result, err := command.Execute(context.Background(), repo, req)

		// then
		require.NoError(t, err)
		assert.Equal(t, "abc123", result.CommitSHA)
		assert.Len(t, spy.PublishCalls, 1)
	})

	t.Run("should publish the full request when everything checks out", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyProviderRepository{
			WriteAccess:   true,
			PublishResult: entities.CommitResult{CommitSHA: "def456", RefUpdated: true},
		}
		command := commands.NewPublishCommand(spy)
		req := entitybuilders.NewCommitRequestBuilder().
			WithBranch("main").
			WithMessage("Add generated stack").
			WithFile("k8s/deployment.yaml", "kind: Deployment\n").
			BuildCommitRequest()

		// when
		result, err := command.Execute(context.Background(), repo, req)

		// then
		require.NoError(t, err)
		assert.Equal(t, "def456", result.CommitSHA)
		assert.True(t, result.RefUpdated)
		require.Len(t, spy.PublishCalls, 1)
		assert.Equal(t, "Add generated stack", spy.PublishCalls[0].Message)
		assert.Len(t, spy.PublishCalls[0].Files, 2)
	})
}
