package controllers

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal/domain/entities"
	infraRepos "github.com/fabriko/shipwright/internal/infrastructure/repositories"
)

// TemplatesController handles the "templates" subcommand: list the
// available versions (tags) of a template repository.
type TemplatesController struct {
	registry *infraRepos.ProviderRegistry
}

// NewTemplatesController creates a new TemplatesController.
func NewTemplatesController(registry *infraRepos.ProviderRegistry) *TemplatesController {
	return &TemplatesController{registry: registry}
}

// GetBind returns the Cobra command metadata for the templates controller.
func (it *TemplatesController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "templates",
		Short: "List available template versions",
		Long: `List the tags of a template repository, newest version first, so a
specific template version can be picked for generation.`,
	}
}

// Execute runs the template listing flow.
func (it *TemplatesController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	owner, _ := cmd.Flags().GetString("owner")
	name, _ := cmd.Flags().GetString("repo")
	if owner == "" || name == "" {
		logger.Error("--owner and --repo are required")
		return
	}

	provider, err := it.registry.Get(settings.Provider.Type, settings.Provider.Token)
	if err != nil {
		logger.Errorf("Failed to initialize provider: %v", err)
		return
	}

	tags, err := provider.ListTemplateTags(ctx, entities.Repository{Owner: owner, Name: name})
	if err != nil {
		logger.Errorf("Failed to list template tags: %v", err)
		return
	}

	if len(tags) == 0 {
		logger.Infof("No tags found in %s/%s", owner, name)
		return
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
}

// AddFlags adds the templates-specific flags to the given Cobra command.
func (it *TemplatesController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "Template repository owner")
	cmd.Flags().String("repo", "", "Template repository name")
}
