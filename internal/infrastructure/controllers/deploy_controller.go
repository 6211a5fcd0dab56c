package controllers

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal/domain/commands"
	"github.com/fabriko/shipwright/internal/domain/entities"
)

// DeployController handles the "deploy" subcommand: trigger a
// non-destructive action's workflow and follow the run to completion.
type DeployController struct {
	command commands.Trigger
}

// NewDeployController creates a new DeployController.
func NewDeployController(command commands.Trigger) *DeployController {
	return &DeployController{command: command}
}

// GetBind returns the Cobra command metadata for the deploy controller.
func (it *DeployController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "deploy <action>",
		Short: "Trigger an action's workflow and follow the run",
		Long: `Trigger the workflow configured for the given action (plan, apply,
deploy, update, status), optionally publishing a directory of generated
files first, then poll the resulting run until it completes.

Destructive actions (destroy, delete) are rejected here; use the destroy
subcommand, which asks for confirmation.`,
	}
}

// Execute runs the deploy flow.
func (it *DeployController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	if len(args) == 0 {
		logger.Error("an action argument is required (e.g. deploy apply)")
		return
	}

	action, err := entities.ParseAction(args[0])
	if err != nil {
		logger.Errorf("Invalid action: %v", err)
		return
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

	if err := it.command.Execute(ctx, settings, opts); err != nil {
		logger.Errorf("%s failed: %v", action, err)
	}
}

// AddFlags adds the deploy-specific flags to the given Cobra command.
func (it *DeployController) AddFlags(cmd *cobra.Command) {
	addTriggerFlags(cmd)
}

// addTriggerFlags registers the flags shared by deploy and destroy.
func addTriggerFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("input", nil,
		"Workflow input as key=value (repeatable; bools and numbers keep their type)")
	cmd.Flags().String("dir", "", "Directory of generated files to publish before dispatch")
	cmd.Flags().String("message", "", "Commit message for the published files")
	cmd.Flags().String("ref", "", "Git ref to dispatch on (default: configured or default branch)")
}

// triggerOptionsFromFlags builds the shared trigger options for deploy and
// destroy from the Cobra flags.
func triggerOptionsFromFlags(
	cmd *cobra.Command,
	action entities.Action,
) (commands.TriggerRunOptions, error) {
	rawInputs, _ := cmd.Flags().GetStringArray("input")
	dir, _ := cmd.Flags().GetString("dir")
	message, _ := cmd.Flags().GetString("message")
	ref, _ := cmd.Flags().GetString("ref")

	inputs, err := parseInputs(rawInputs)
	if err != nil {
		return commands.TriggerRunOptions{}, err
	}

	var files []entities.FileChange
	if dir != "" {
		files, err = readFilesFromDir(dir)
		if err != nil {
			return commands.TriggerRunOptions{}, fmt.Errorf("failed to collect files from %q: %w", dir, err)
		}
	}

	return commands.TriggerRunOptions{
		Action:        action,
		Inputs:        inputs,
		Files:         files,
		CommitMessage: message,
		Ref:           ref,
	}, nil
}
