package common

import "github.com/spf13/cobra"

type GlobalFlags struct {
	Config        string
	Root          string
	Debug         bool
	NoStatus      bool
	NoColor       bool
	Output        string
	MetricsListen string
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	command.PersistentFlags().StringVar(&flags.Config, "config", "", "config file path (defaults to $HYPERSYNC_CONFIG or ~/.hypersync/config.yaml)")
	command.PersistentFlags().StringVarP(&flags.Root, "root", "r", "", "API root URI, overrides api.root")
	command.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug output")
	command.PersistentFlags().BoolVarP(&flags.NoStatus, "no-status", "n", false, "hide status output")
	command.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "disable color output")
	command.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputAuto, "output format: auto|text|json|yaml")
	command.PersistentFlags().StringVar(&flags.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on host:port while the command runs")
	_ = command.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputAuto, OutputText, OutputJSON, OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
}
