package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal/domain/commands"
	"github.com/fabriko/shipwright/internal/domain/entities"
	infraRepos "github.com/fabriko/shipwright/internal/infrastructure/repositories"
)

// PublishController handles the "publish" subcommand: push a directory of
// generated template files as one atomic commit, without dispatching.
type PublishController struct {
	registry *infraRepos.ProviderRegistry
}

// NewPublishController creates a new PublishController.
func NewPublishController(registry *infraRepos.ProviderRegistry) *PublishController {
	return &PublishController{registry: registry}
}

// GetBind returns the Cobra command metadata for the publish controller.
func (it *PublishController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "publish",
		Short: "Publish generated files as a single commit",
		Long: `Publish all files under a directory to the configured repository
as one atomic commit on top of the current branch head.

Files are layered over the existing tree: paths not present in the
directory are left untouched. The branch ref moves in a single
fast-forward update, or not at all.`,
	}
}

// Execute runs the publish flow.
func (it *PublishController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	dir, _ := cmd.Flags().GetString("dir")
	message, _ := cmd.Flags().GetString("message")
	branch, _ := cmd.Flags().GetString("branch")

	files, err := readFilesFromDir(dir)
	if err != nil {
		logger.Errorf("Failed to collect files from %q: %v", dir, err)
		return
	}

	provider, err := it.registry.Get(settings.Provider.Type, settings.Provider.Token)
	if err != nil {
		logger.Errorf("Failed to initialize provider: %v", err)
		return
	}

	repo, err := provider.GetRepository(ctx, settings.Repository.Owner, settings.Repository.Name)
	if err != nil {
		logger.Errorf("Failed to resolve repository: %v", err)
		return
	}

	if branch == "" {
		branch = settings.Repository.Branch
	}

	result, err := commands.NewPublishCommand(provider).Execute(ctx, repo, entities.CommitRequest{
		Branch:  branch,
		Message: message,
		Files:   files,
	})
	if err != nil {
		logger.Errorf("Publish failed: %v", err)
		return
	}

	if result.RefUpdated {
		logger.Infof("Branch updated to commit %s", result.CommitSHA)
	}
}

// AddFlags adds the publish-specific flags to the given Cobra command.
func (it *PublishController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("dir", ".", "Directory of generated files to publish")
	cmd.Flags().String("message", "Add generated infrastructure files", "Commit message")
	cmd.Flags().String("branch", "", "Target branch (default: configured or repository default)")
}
