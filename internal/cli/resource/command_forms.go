package resource

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/internal/cli/common"
	"github.com/crmarques/hypersync/resource"
)

type formView struct {
	Rel    string      `json:"rel" yaml:"rel"`
	Submit string      `json:"submit" yaml:"submit"`
	Fields []fieldView `json:"fields" yaml:"fields"`
}

type fieldView struct {
	Name     string      `json:"name" yaml:"name"`
	Type     string      `json:"type" yaml:"type"`
	Label    string      `json:"label,omitempty" yaml:"label,omitempty"`
	Required bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Multiple bool        `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Fields   []fieldView `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func newFormsCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "forms [uri]",
		Short: "Show the create and edit forms a resource advertises",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			connection, err := common.Connect(command, deps, globalFlags)
			if err != nil {
				return err
			}
			defer func() { _ = connection.Close(context.WithoutCancel(command.Context())) }()

			target := connection.Root
			if len(args) > 0 {
				target = connection.Session.Resource(args[0])
			}
			if _, err := load(command.Context(), connection.Session.Client, target, graph.LoadOptions{}); err != nil {
				return err
			}

			forms, err := connection.Session.Orchestrator.Forms(command.Context(), target)
			if err != nil {
				return err
			}
			views := formViews(forms)
			return common.WriteOutput(command, globalFlags.Output, views, renderForms)
		},
	}
	return command
}

func formViews(forms map[string]resource.Form) []formView {
	rels := make([]string, 0, len(forms))
	for rel := range forms {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	views := make([]formView, 0, len(rels))
	for _, rel := range rels {
		form := forms[rel]
		views = append(views, formView{Rel: rel, Submit: form.Submit(), Fields: fieldViews(form.Items)})
	}
	return views
}

func fieldViews(items []resource.FormItem) []fieldView {
	if len(items) == 0 {
		return nil
	}
	fields := make([]fieldView, 0, len(items))
	for _, item := range items {
		field := fieldView{
			Name:     item.Name,
			Type:     item.Type.String(),
			Label:    item.Label,
			Required: item.Required,
			Multiple: item.Multiple,
		}
		if item.Type == resource.FieldGroup {
			field.Fields = fieldViews(item.Items)
		}
		fields = append(fields, field)
	}
	return fields
}

func renderForms(w io.Writer, views []formView) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "no forms")
		return err
	}
	for _, view := range views {
		if _, err := fmt.Fprintf(w, "%s -> %s\n", view.Rel, view.Submit); err != nil {
			return err
		}
		if err := renderFields(w, view.Fields, "  "); err != nil {
			return err
		}
	}
	return nil
}

func renderFields(w io.Writer, fields []fieldView, indent string) error {
	for _, field := range fields {
		marker := ""
		if field.Required {
			marker = " *"
		}
		if _, err := fmt.Fprintf(w, "%s%s (%s)%s\n", indent, field.Name, field.Type, marker); err != nil {
			return err
		}
		if err := renderFields(w, field.Fields, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}
