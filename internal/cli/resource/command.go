package resource

import (
	"github.com/spf13/cobra"

	"github.com/crmarques/hypersync/internal/cli/common"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "resource",
		Short: "Browse API resources",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	command.AddCommand(
		newGetCommand(deps, globalFlags),
		newFormsCommand(deps, globalFlags),
	)
	return command
}
