// Package merge projects client documents onto the fields a server form
// declares, producing the wire payloads for create and update requests.
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/crmarques/hypersync/resolver"
	"github.com/crmarques/hypersync/resource"
)

// PooledResolver looks up the value of a select field without an enumeration
// in a shared pool of resources, for example turning a name into a URI.
type PooledResolver func(ctx context.Context, field string, value resource.Value) (resource.Value, error)

type Options struct {
	Resolver       resolver.Resolver
	PooledResolver PooledResolver
	// IsTracked reports fields carried as link relations rather than
	// attributes. Nil treats a field as tracked when the original resource
	// has a link whose rel is the dash-cased field name.
	IsTracked func(field string) bool
	// UndefinedWhenNoUpdateRequired makes EditMerge report no change when
	// every form field already holds the merged value.
	UndefinedWhenNoUpdateRequired bool
	Logger                        logr.Logger
}

func (o Options) resolve(uri string) string {
	if o.Resolver == nil {
		return uri
	}
	return o.Resolver.Resolve(uri)
}

func (o Options) logger() logr.Logger {
	if o.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return o.Logger
}

// CreateMerge projects document onto form. Only fields the form declares
// are kept.
func CreateMerge(ctx context.Context, document resource.Representation, form resource.Form, opts Options) (resource.Representation, error) {
	attributes, err := project(ctx, document, form.Items, opts)
	if err != nil {
		return resource.Representation{}, err
	}
	return resource.Representation{Attributes: attributes}, nil
}

// EditMerge overlays the projection of document onto original. Tracked
// fields become link mutations. changed is false only when
// UndefinedWhenNoUpdateRequired is set and no form field differs.
func EditMerge(
	ctx context.Context,
	original resource.Representation,
	document resource.Representation,
	form resource.Form,
	opts Options,
) (merged resource.Representation, changed bool, err error) {
	projected, err := project(ctx, document, form.Items, opts)
	if err != nil {
		return resource.Representation{}, false, err
	}

	isTracked := opts.IsTracked
	if isTracked == nil {
		isTracked = func(field string) bool {
			return original.Links.Has(resource.Rel(relFor(field)))
		}
	}

	merged = original.Clone()
	merged.Items = nil
	for _, item := range form.Items {
		value, ok := projected[item.Name]
		if !ok {
			continue
		}
		if isTracked(item.Name) {
			merged.Links = merged.Links.Replace(relFor(item.Name), resource.StringSlice(value)...)
			merged.DeleteAttribute(item.Name)
			continue
		}
		merged.SetAttribute(item.Name, value)
	}

	if !opts.UndefinedWhenNoUpdateRequired {
		return merged, true, nil
	}

	before, err := project(ctx, original, form.Items, opts)
	if err != nil {
		return resource.Representation{}, false, err
	}
	after, err := project(ctx, merged, form.Items, opts)
	if err != nil {
		return resource.Representation{}, false, err
	}
	for _, item := range form.Items {
		beforeValue, beforeOK := before[item.Name]
		afterValue, afterOK := after[item.Name]
		if beforeOK != afterOK || !resource.Equal(beforeValue, afterValue) {
			opts.logger().V(1).Info("update required", "field", item.Name)
			return merged, true, nil
		}
	}
	return merged, false, nil
}

func relFor(field string) string {
	return resource.DashCase(field)
}

func project(ctx context.Context, source resource.Representation, items []resource.FormItem, opts Options) (map[string]resource.Value, error) {
	out := make(map[string]resource.Value, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}

		value, present := source.Attribute(item.Name)
		if !present {
			value, present = linkValue(source, item)
		}
		if !present {
			continue
		}

		projected, keep, err := projectField(ctx, item, value, opts)
		if err != nil {
			return nil, err
		}
		if keep {
			out[item.Name] = projected
		}
	}
	return out, nil
}

// linkValue folds a link relation named after a select or collection field
// into a value.
func linkValue(source resource.Representation, item resource.FormItem) (resource.Value, bool) {
	if item.Type != resource.FieldSelect && item.Type != resource.FieldCollection {
		return nil, false
	}
	hrefs := source.Links.Hrefs(resource.Rel(relFor(item.Name)))
	if len(hrefs) == 0 && relFor(item.Name) != item.Name {
		hrefs = source.Links.Hrefs(resource.Rel(item.Name))
	}
	if len(hrefs) == 0 {
		return nil, false
	}
	if item.Type == resource.FieldSelect && !item.Multiple {
		return hrefs[0], true
	}
	values := make([]any, 0, len(hrefs))
	for _, href := range hrefs {
		values = append(values, href)
	}
	return values, true
}

func projectField(ctx context.Context, item resource.FormItem, value resource.Value, opts Options) (resource.Value, bool, error) {
	logger := opts.logger()
	if item.Type.Scalar() {
		return value, true, nil
	}

	switch item.Type {
	case resource.FieldSelect:
		return projectSelect(ctx, item, value, opts)

	case resource.FieldCollection:
		return resolveAll(value, opts), true, nil

	case resource.FieldGroup:
		if item.Multiple {
			entries, ok := value.([]any)
			if !ok {
				logger.Info("group field is not a list", "field", item.Name)
				return value, true, nil
			}
			projected := make([]any, 0, len(entries))
			for _, entry := range entries {
				nested, ok := asRepresentation(entry)
				if !ok {
					projected = append(projected, entry)
					continue
				}
				values, err := project(ctx, nested, item.Items, opts)
				if err != nil {
					return nil, false, err
				}
				projected = append(projected, map[string]any(values))
			}
			return projected, true, nil
		}

		nested, ok := asRepresentation(value)
		if !ok {
			logger.Info("group field is not an object", "field", item.Name)
			return value, true, nil
		}
		values, err := project(ctx, nested, item.Items, opts)
		if err != nil {
			return nil, false, err
		}
		return map[string]any(values), true, nil

	default:
		logger.Info("dropping field of unsupported type", "field", item.Name, "type", item.RawType)
		return nil, false, nil
	}
}

func projectSelect(ctx context.Context, item resource.FormItem, value resource.Value, opts Options) (resource.Value, bool, error) {
	if item.Multiple {
		return resolveAll(value, opts), true, nil
	}

	if allowed := item.EnumValues(); len(allowed) > 0 {
		if !contains(allowed, value) {
			opts.logger().Info("value is not in the field enumeration", "field", item.Name, "value", fmt.Sprint(value))
		}
		return value, true, nil
	}

	if opts.PooledResolver != nil {
		pooled, err := opts.PooledResolver(ctx, item.Name, value)
		if err != nil {
			return nil, false, err
		}
		value = pooled
	}
	if text, ok := value.(string); ok {
		return opts.resolve(text), true, nil
	}
	return value, true, nil
}

func resolveAll(value resource.Value, opts Options) resource.Value {
	switch typed := value.(type) {
	case string:
		return []any{opts.resolve(typed)}
	case []string:
		out := make([]any, 0, len(typed))
		for _, entry := range typed {
			out = append(out, opts.resolve(entry))
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, entry := range typed {
			if text, ok := entry.(string); ok {
				out = append(out, opts.resolve(text))
				continue
			}
			out = append(out, entry)
		}
		return out
	default:
		return value
	}
}

func asRepresentation(value resource.Value) (resource.Representation, bool) {
	switch typed := value.(type) {
	case resource.Representation:
		return typed, true
	case map[string]any:
		return resource.FromMap(typed), true
	default:
		return resource.Representation{}, false
	}
}

func contains(values []resource.Value, candidate resource.Value) bool {
	for _, value := range values {
		if resource.Equal(value, candidate) {
			return true
		}
	}
	return false
}
