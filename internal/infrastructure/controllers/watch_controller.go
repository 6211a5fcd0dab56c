package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal/domain/commands"
	"github.com/fabriko/shipwright/internal/domain/entities"
)

// WatchController handles the "watch" subcommand: follow an existing
// workflow run without dispatching anything.
type WatchController struct {
	command commands.Watch
}

// NewWatchController creates a new WatchController.
func NewWatchController(command commands.Watch) *WatchController {
	return &WatchController{command: command}
}

// GetBind returns the Cobra command metadata for the watch controller.
func (it *WatchController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "watch",
		Short: "Follow an existing workflow run",
		Long: `Attach to a workflow run that is already queued or in progress and
poll it until it completes, mirroring its status transitions to the log.`,
	}
}

// Execute runs the watch flow.
func (it *WatchController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	runID, _ := cmd.Flags().GetInt64("run-id")
	if runID <= 0 {
		logger.Error("--run-id is required")
		return
	}

	rawAction, _ := cmd.Flags().GetString("action")
	action, err := entities.ParseAction(rawAction)
	if err != nil {
		logger.Errorf("Invalid action: %v", err)
		return
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	if err := it.command.Execute(ctx, settings, action, runID); err != nil {
		logger.Errorf("watch failed: %v", err)
	}
}

// AddFlags adds the watch-specific flags to the given Cobra command.
func (it *WatchController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("run-id", 0, "Id of the workflow run to follow")
	cmd.Flags().String("action", "status", "Action slot to track the run under")
}
