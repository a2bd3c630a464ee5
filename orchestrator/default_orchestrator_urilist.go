package orchestrator

import (
	"context"
	"net/http"

	"github.com/crmarques/hypersync/diff"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/resource"
)

// GetURIListOnNamedCollection synchronises a text/uri-list membership
// resource linked from parent against the URIs listed by the document
// attribute named.DocumentName. Document URIs are mapped through the
// resolver first.
func (r *DefaultOrchestrator) GetURIListOnNamedCollection(
	ctx context.Context,
	parent *graph.Resource,
	document resource.Representation,
	named Named,
	opts Options,
) (_ *graph.Resource, err error) {
	ctx, span := r.startSpan(ctx, "GetURIListOnNamedCollection", parent)
	defer func() { endSpan(span, err) }()

	value, ok := document.Attribute(named.documentName())
	if !ok {
		r.logger().V(1).Info("document has no uri-list", "name", named.documentName(), "parent", parent.URI())
		return parent, nil
	}

	client, err := r.requireClient()
	if err != nil {
		return parent, err
	}
	opts = opts.withDefaults()
	list, err := r.resolveNamedCollection(ctx, parent, named, opts)
	if err != nil {
		return parent, err
	}

	current, err := client.FetchURIList(ctx, list)
	if err != nil {
		return list, r.tolerate(ctx, opts, err, "failed to read uri-list", list.URI())
	}
	if status := list.Status(); status == graph.StatusForbidden || status == graph.StatusUnknown {
		r.logger().V(1).Info("skipping uri-list that could not be loaded", "uri", list.URI(), "status", status.String())
		return list, nil
	}

	desired := make([]string, 0)
	for _, uri := range documentURIs(value) {
		desired = append(desired, resource.ResolveReference(list.URI(), opts.Resolver.Resolve(uri)))
	}

	create, remove := diff.URIList(current, desired)
	r.logger().V(1).Info("uri-list diff", "uri", list.URI(), "create", len(create), "delete", len(remove))
	if len(create) == 0 && len(remove) == 0 {
		return list, nil
	}

	if opts.ReplaceURIList {
		err := client.SendURIList(ctx, list, http.MethodPatch, desired)
		return list, r.tolerate(ctx, opts, err, "uri-list replace failed", list.URI())
	}
	if len(remove) > 0 {
		if err := client.SendURIList(ctx, list, http.MethodDelete, remove); err != nil {
			return list, r.tolerate(ctx, opts, err, "uri-list delete failed", list.URI())
		}
	}
	if len(create) > 0 {
		if err := client.SendURIList(ctx, list, http.MethodPost, create); err != nil {
			return list, r.tolerate(ctx, opts, err, "uri-list create failed", list.URI())
		}
	}
	return list, nil
}

// documentURIs reads a URI list from a document attribute: a string list,
// a list of linked documents or a collection document.
func documentURIs(value resource.Value) []string {
	switch typed := value.(type) {
	case string, []string:
		return resource.StringSlice(typed)
	case []any:
		uris := make([]string, 0, len(typed))
		for _, entry := range typed {
			switch item := entry.(type) {
			case string:
				uris = append(uris, item)
			case map[string]any:
				if uri := resource.FromMap(item).URI(); uri != "" {
					uris = append(uris, uri)
				}
			case resource.Representation:
				if uri := item.URI(); uri != "" {
					uris = append(uris, uri)
				}
			}
		}
		return uris
	case map[string]any:
		return documentURIs(resource.FromMap(typed))
	case resource.Representation:
		uris := make([]string, 0, len(typed.Items))
		for _, item := range typed.Items {
			if uri := item.URI(); uri != "" {
				uris = append(uris, uri)
			}
		}
		return uris
	default:
		return nil
	}
}
