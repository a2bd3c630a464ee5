package synccmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/crmarques/hypersync/debugctx"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/internal/cli/common"
	"github.com/crmarques/hypersync/orchestrator"
)

type result struct {
	URI    string `json:"uri" yaml:"uri"`
	Status string `json:"status" yaml:"status"`
	Kind   string `json:"kind" yaml:"kind"`
}

type flags struct {
	plan           string
	confirmDeletes bool
	stopOnError    bool
	replaceURIList bool
	forceLoad      bool
	batchSize      int
}

// Confirmer asks whether target may be deleted.
type Confirmer func(command *cobra.Command, target *graph.Resource) (bool, error)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return newCommand(deps, globalFlags, promptDelete)
}

func newCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags, confirm Confirmer) *cobra.Command {
	var values flags

	command := &cobra.Command{
		Use:   "sync",
		Short: "Synchronise API resources with a declarative plan",
		Example: strings.Join([]string{
			"  hypersync sync --plan tenants.yaml",
			"  hypersync sync --plan tenants.yaml --confirm-deletes",
			"  hypersync sync --plan tenants.yaml --stop-on-error -o json",
		}, "\n"),
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			plan, err := LoadPlan(values.plan)
			if err != nil {
				return err
			}
			request, err := plan.Request()
			if err != nil {
				return err
			}
			if values.confirmDeletes && !common.IsInteractiveTerminal(command) {
				return common.ValidationError("flag --confirm-deletes requires an interactive terminal", nil)
			}

			connection, err := common.Connect(command, deps, globalFlags)
			if err != nil {
				return err
			}
			defer func() { _ = connection.Close(context.WithoutCancel(command.Context())) }()

			opts, err := connection.Session.SyncOptions()
			if err != nil {
				return err
			}
			applyFlagOverrides(command, values, &opts)
			if values.confirmDeletes {
				opts.ConfirmDelete = serialConfirm(command, confirm)
			}

			ctx := command.Context()
			target := connection.Root
			if plan.Target != "" {
				target = connection.Session.Resource(plan.Target)
			}
			debugctx.Printf(ctx, "sync plan=%q target=%q kind=%s steps=%d", values.plan, target.URI(), request.Kind, len(request.Children))

			synced, err := connection.Session.Orchestrator.Sync(ctx, target, plan.Representation(), request, opts)
			if err != nil {
				return err
			}
			if synced == nil {
				synced = target
			}

			value := result{URI: synced.URI(), Status: synced.Status().String(), Kind: request.Kind.String()}
			return common.WriteOutput(command, globalFlags.Output, value, func(w io.Writer, item result) error {
				_, err := fmt.Fprintf(w, "synced %s %s (%s)\n", item.Kind, item.URI, item.Status)
				return err
			})
		},
	}

	command.Flags().StringVarP(&values.plan, "plan", "p", "", "plan file (yaml)")
	command.Flags().BoolVar(&values.confirmDeletes, "confirm-deletes", false, "ask before deleting each resource")
	command.Flags().BoolVar(&values.stopOnError, "stop-on-error", false, "abort on the first failed item, overrides sync.stop-on-error")
	command.Flags().BoolVar(&values.replaceURIList, "replace-uri-list", false, "replace uri-lists in one PATCH, overrides sync.replace-uri-list")
	command.Flags().BoolVar(&values.forceLoad, "force-load", false, "refetch resources already loaded, overrides sync.force-load")
	command.Flags().IntVar(&values.batchSize, "batch-size", 0, "concurrent requests per diff phase, overrides sync.batch-size")
	_ = command.MarkFlagRequired("plan")
	return command
}

func applyFlagOverrides(command *cobra.Command, values flags, opts *orchestrator.Options) {
	if command.Flags().Changed("stop-on-error") {
		opts.StopOnError = values.stopOnError
	}
	if command.Flags().Changed("replace-uri-list") {
		opts.ReplaceURIList = values.replaceURIList
	}
	if command.Flags().Changed("force-load") {
		opts.ForceLoad = values.forceLoad
	}
	if command.Flags().Changed("batch-size") {
		opts.BatchSize = values.batchSize
	}
}

// serialConfirm funnels concurrent delete confirmations through one prompt
// at a time.
func serialConfirm(command *cobra.Command, confirm Confirmer) orchestrator.ConfirmDelete {
	var mu sync.Mutex
	return func(ctx context.Context, target *graph.Resource) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return confirm(command, target)
	}
}

func promptDelete(command *cobra.Command, target *graph.Resource) (bool, error) {
	label := target.URI()
	if title := target.Title(); title != "" {
		label = fmt.Sprintf("%s (%s)", title, target.URI())
	}
	return common.PromptConfirm(command, fmt.Sprintf("Delete %s?", label), false)
}
