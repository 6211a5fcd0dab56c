package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal"
	"github.com/fabriko/shipwright/internal/infrastructure/controllers"
)

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "shipwright",
		Short: "Publish infrastructure templates and drive their CI workflows",
		Long: `A wizard backend that publishes generated infrastructure templates
(Terraform, Kubernetes manifests, CI workflows) to a repository as a
single atomic commit, triggers the matching workflow, and follows the
run until it completes.

Usage modes:
  shipwright publish --dir ./out          Publish generated files only
  shipwright deploy apply --dir ./out     Publish, dispatch, and follow
  shipwright destroy                      Tear down (asks for confirmation)
  shipwright watch --run-id 123           Follow an existing run`,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	// Global persistent flags
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to config file (default: auto-detect)")
	cmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable verbose output")

	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				if verbose, _ := command.Flags().GetBool("verbose"); verbose {
					logger.SetLevel(logger.DebugLevel)
				}
				ctrl.Execute(command, arguments)
			},
		}

		// Add controller-specific flags
		switch c := ctrl.(type) {
		case *controllers.PublishController:
			c.AddFlags(subCmd)
		case *controllers.DeployController:
			c.AddFlags(subCmd)
		case *controllers.DestroyController:
			c.AddFlags(subCmd)
		case *controllers.WatchController:
			c.AddFlags(subCmd)
		case *controllers.TemplatesController:
			c.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()

	// Add all subcommands via DIG
	appContext := injectAppContext()
	addSubcommands(cobraRoot, appContext)

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'shipwright': %s", err)
	}
}
