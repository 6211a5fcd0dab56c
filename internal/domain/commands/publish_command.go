package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/internal/domain/repositories"
)

// Publish is the interface for the publish command.
type Publish interface {
	Execute(ctx context.Context, repo entities.Repository, req entities.CommitRequest) (entities.CommitResult, error)
}

// PublishCommand validates generated template files and publishes them as a
// single atomic commit through the provider.
type PublishCommand struct {
	provider repositories.ProviderRepository
}

// NewPublishCommand creates a new PublishCommand.
func NewPublishCommand(provider repositories.ProviderRepository) *PublishCommand {
	return &PublishCommand{provider: provider}
}

// Execute validates the files, runs the advisory access preflight, and
// publishes. An empty file set is a no-op and creates no commit.
func (it *PublishCommand) Execute(
	ctx context.Context,
	repo entities.Repository,
	req entities.CommitRequest,
) (entities.CommitResult, error) {
	if len(req.Files) == 0 {
		logger.Infof("Nothing to publish to %s, skipping", repo.FullName())
		return entities.CommitResult{}, nil
	}

	if err := validateFiles(req.Files); err != nil {
		return entities.CommitResult{}, err
	}

	allowed, err := it.provider.CheckWriteAccess(ctx, repo)
	if err != nil {
		// Advisory only: the publish itself is the authoritative check.
		logger.Warnf("Access preflight for %s failed: %v", repo.FullName(), err)
	} else if !allowed {
		return entities.CommitResult{}, entities.NewError(entities.ErrAccessDenied,
			fmt.Sprintf("no write access to %s", repo.FullName()))
	}

	result, err := it.provider.PublishCommit(ctx, repo, req)
	if err != nil {
		return entities.CommitResult{}, fmt.Errorf(
			"failed to publish %d file(s) to %s: %w", len(req.Files), repo.FullName(), err)
	}

	logger.Infof("Published %d file(s) to %s as commit %s",
		len(req.Files), repo.FullName(), result.CommitSHA)
	return result, nil
}

// validateFiles runs syntax preflight on templates the wizard is known to
// generate: Terraform files are parsed with HCL, YAML manifests with yaml.v3.
// Anything else passes through untouched.
func validateFiles(files []entities.FileChange) error {
	for _, file := range files {
		switch {
		case strings.HasSuffix(file.Path, ".tf"):
			parser := hclparse.NewParser()
			if _, diags := parser.ParseHCL([]byte(file.Content), file.Path); diags.HasErrors() {
				return entities.WrapError(entities.ErrDispatchRejected,
					fmt.Sprintf("invalid terraform in %q", file.Path), diags)
			}
		case strings.HasSuffix(file.Path, ".yaml"), strings.HasSuffix(file.Path, ".yml"):
			var doc any
			if err := yaml.Unmarshal([]byte(file.Content), &doc); err != nil {
				return entities.WrapError(entities.ErrDispatchRejected,
					fmt.Sprintf("invalid yaml in %q", file.Path), err)
			}
		}
	}
	return nil
}
