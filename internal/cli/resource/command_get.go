package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmarques/hypersync/compare"
	"github.com/crmarques/hypersync/debugctx"
	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/internal/cli/common"
	"github.com/crmarques/hypersync/resource"
)

func newGetCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var rels []string
	var query string
	var forceLoad bool

	command := &cobra.Command{
		Use:   "get [uri]",
		Short: "Read a resource, optionally following link relations",
		Example: strings.Join([]string{
			"  hypersync resource get",
			"  hypersync resource get /tenants/",
			"  hypersync resource get --rel tenants --rel create-form",
			"  hypersync resource get /tenants/ --jq '.items[].name'",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			connection, err := common.Connect(command, deps, globalFlags)
			if err != nil {
				return err
			}
			defer func() { _ = connection.Close(context.WithoutCancel(command.Context())) }()

			ctx := command.Context()
			target := connection.Root
			if len(args) > 0 {
				target = connection.Session.Resource(args[0])
			}
			loadOptions := graph.LoadOptions{ForceLoad: forceLoad}

			target, err = load(ctx, connection.Session.Client, target, loadOptions)
			if err != nil {
				return err
			}
			for _, rel := range rels {
				debugctx.Printf(ctx, "resource get following rel=%q from=%q", rel, target.URI())
				next, err := follow(connection.Session.Client, target, rel)
				if err != nil {
					return err
				}
				target, err = load(ctx, connection.Session.Client, next, loadOptions)
				if err != nil {
					return err
				}
			}

			representation := target.Representation()
			if strings.TrimSpace(query) != "" {
				value, err := compare.Query(query, representation)
				if err != nil {
					return err
				}
				return common.WriteOutput(command, globalFlags.Output, value, nil)
			}
			return common.WriteOutput(command, globalFlags.Output, representation.ToMap(), nil)
		},
	}

	command.Flags().StringArrayVar(&rels, "rel", nil, "follow a link relation; repeat to walk several hops")
	command.Flags().StringVar(&query, "jq", "", "jq expression applied to the final representation")
	command.Flags().BoolVar(&forceLoad, "force-load", false, "refetch resources already loaded in this session")
	return command
}

// load synchronises target and turns the statuses a read cannot use into
// errors.
func load(ctx context.Context, client *graph.Client, target *graph.Resource, opts graph.LoadOptions) (*graph.Resource, error) {
	if _, err := client.Synchronise(ctx, target, opts); err != nil {
		return target, err
	}
	switch target.Status() {
	case graph.StatusHydrated:
		return target, nil
	case graph.StatusForbidden:
		return target, faults.NewTypedError(faults.AuthError, fmt.Sprintf("access to %s is forbidden", target.URI()), nil)
	default:
		return target, faults.NewTypedError(faults.TransportError, fmt.Sprintf("%s could not be loaded (%s)", target.URI(), target.Status()), nil)
	}
}

func follow(client *graph.Client, from *graph.Resource, rel string) (*graph.Resource, error) {
	href := from.Links().Href(resource.Rel(strings.TrimSpace(rel)), "")
	if href == "" {
		return nil, faults.MissingInterface(rel)
	}
	return client.Resource(resource.ResolveReference(from.URI(), href)), nil
}
