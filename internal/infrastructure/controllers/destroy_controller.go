package controllers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal/domain/commands"
	"github.com/fabriko/shipwright/internal/domain/entities"
)

// DestroyController handles the "destroy" subcommand. Destructive actions
// go through the coordinator's two-phase confirmation; this controller
// surfaces the confirmation prompt on the terminal.
type DestroyController struct {
	command commands.Trigger
}

// NewDestroyController creates a new DestroyController.
func NewDestroyController(command commands.Trigger) *DestroyController {
	return &DestroyController{command: command}
}

// GetBind returns the Cobra command metadata for the destroy controller.
func (it *DestroyController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "destroy",
		Short: "Tear down infrastructure (asks for confirmation)",
		Long: `Trigger the destroy workflow and follow the run to completion.

Destruction cannot be undone, so the operation requires an explicit
confirmation before anything is dispatched.`,
	}
}

// Execute runs the destroy flow.
func (it *DestroyController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	action := entities.ActionDestroy
	if len(args) > 0 {
		parsed, err := entities.ParseAction(args[0])
		if err != nil {
			logger.Errorf("Invalid action: %v", err)
			return
		}
		if !parsed.IsDestructive() {
			logger.Errorf("Action %q is not destructive, use the deploy subcommand", parsed)
			return
		}
		action = parsed
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	opts, err := triggerOptionsFromFlags(cmd, action)
	if err != nil {
		logger.Errorf("Invalid flags: %v", err)
		return
	}
	opts.Confirm = promptConfirmation

	if err := it.command.Execute(ctx, settings, opts); err != nil {
		logger.Errorf("%s failed: %v", action, err)
	}
}

// AddFlags adds the destroy-specific flags to the given Cobra command.
func (it *DestroyController) AddFlags(cmd *cobra.Command) {
	addTriggerFlags(cmd)
}

// promptConfirmation shows the confirmation ticket and reads a y/N answer.
func promptConfirmation(ticket entities.ConfirmationTicket) bool {
	fmt.Println(ticket.Description)
	fmt.Print("Type 'yes' to continue: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(answer) == "yes"
}
