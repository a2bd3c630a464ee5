package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/crmarques/hypersync/debugctx"
	"github.com/crmarques/hypersync/internal/cli/commandmeta"
	"github.com/crmarques/hypersync/internal/cli/common"
	resourcecmd "github.com/crmarques/hypersync/internal/cli/resource"
	"github.com/crmarques/hypersync/internal/cli/synccmd"
	"github.com/crmarques/hypersync/internal/cli/version"
)

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .LocalNonPersistentFlags.HasAvailableFlags}}

Flags:
{{.LocalNonPersistentFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if or .HasAvailableInheritedFlags .HasAvailablePersistentFlags}}

Global Flags:
{{if .HasAvailableInheritedFlags}}{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if and .HasAvailableInheritedFlags .HasAvailablePersistentFlags}}
{{end}}{{if .HasAvailablePersistentFlags}}{{.PersistentFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}
{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

func NewRootCommand(deps Dependencies) *cobra.Command {
	commandDeps := deps.commandDependencies()
	var globalFlags common.GlobalFlags

	root := &cobra.Command{
		Use:   "hypersync",
		Short: "Synchronise hypermedia APIs with declarative documents",
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
		Args: cobra.NoArgs,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			if err := common.ValidateOutputFormat(globalFlags.Output); err != nil {
				return err
			}
			if commandmeta.RequiresSessionPath(command.CommandPath()) && commandDeps.NewSession == nil {
				return common.ValidationError("session factory is not configured", nil)
			}

			commandContext := command.Context()
			if commandContext == nil {
				commandContext = context.Background()
			}
			commandContext = debugctx.WithEnabled(commandContext, globalFlags.Debug)
			commandContext = debugctx.WithLogger(commandContext, newLogger(command.ErrOrStderr(), globalFlags.Debug))
			command.SetContext(commandContext)

			debugctx.Printf(
				command.Context(),
				"root flags config=%q root=%q output=%q no_status=%t no_color=%t command=%q",
				globalFlags.Config,
				globalFlags.Root,
				globalFlags.Output,
				globalFlags.NoStatus,
				globalFlags.NoColor,
				command.CommandPath(),
			)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetUsageTemplate(usageTemplate)
	defaultHelpFunc := root.HelpFunc()
	root.SetHelpFunc(func(command *cobra.Command, args []string) {
		originalOut := command.OutOrStdout()
		originalErr := command.ErrOrStderr()

		buffer := &bytes.Buffer{}
		command.SetOut(buffer)
		command.SetErr(buffer)
		defaultHelpFunc(command, args)
		command.SetOut(originalOut)
		command.SetErr(originalErr)

		rendered := strings.TrimRight(buffer.String(), "\n")
		if rendered == "" {
			_, _ = fmt.Fprintln(originalOut)
			return
		}

		_, _ = fmt.Fprintln(originalOut, rendered)
	})

	common.BindGlobalFlags(root, &globalFlags)
	root.PersistentFlags().BoolP("help", "h", false, "help for command")

	root.AddGroup(
		&cobra.Group{ID: "basic", Title: "Basic Commands:"},
		&cobra.Group{ID: "other", Title: "Other Commands:"},
	)

	basicCommands := []*cobra.Command{
		resourcecmd.NewCommand(commandDeps, &globalFlags),
		synccmd.NewCommand(commandDeps, &globalFlags),
	}
	for _, command := range basicCommands {
		command.GroupID = "basic"
		root.AddCommand(command)
	}

	otherCommands := []*cobra.Command{
		version.NewCommand(&globalFlags),
	}
	for _, command := range otherCommands {
		command.GroupID = "other"
		root.AddCommand(command)
	}
	root.SetCompletionCommandGroupID("other")

	root.SetFlagErrorFunc(flagError)

	return root
}

// newLogger writes key/value log lines to w. Debug raises the verbosity so
// that V(1) lines show up.
func newLogger(w io.Writer, debug bool) logr.Logger {
	verbosity := 0
	if debug {
		verbosity = debugctx.DebugLevel
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

// flagError reports bad flag values as validation errors and shows the
// command usage alongside.
func flagError(command *cobra.Command, err error) error {
	printCommandUsageOnError(command)
	return common.ValidationError(strings.TrimSpace(err.Error()), err)
}

func printCommandUsageOnError(command *cobra.Command) {
	if command == nil {
		return
	}

	rendered := strings.TrimRight(command.UsageString(), "\n")
	if rendered == "" {
		return
	}

	_, _ = fmt.Fprintln(command.ErrOrStderr(), rendered)
}
