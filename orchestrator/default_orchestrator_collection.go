package orchestrator

import (
	"context"

	"github.com/crmarques/hypersync/diff"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/resource"
)

// DiffCollection reconciles the members of collection with document.Items:
// unmatched members are deleted, matched pairs updated and unmatched
// document items created, in that order. Strategies run for every created
// and updated member.
func (r *DefaultOrchestrator) DiffCollection(
	ctx context.Context,
	collection *graph.Resource,
	document resource.Representation,
	opts Options,
	strategies ...Strategy,
) (result CollectionResult, err error) {
	ctx, span := r.startSpan(ctx, "DiffCollection", collection)
	defer func() { endSpan(span, err) }()

	opts = opts.withDefaults()
	if _, err := r.ensureHydrated(ctx, collection, opts); err != nil {
		return CollectionResult{}, err
	}

	partition := diff.CollectionIdentified(collection.Items(), document.Items, collectionIdentity(collection, opts), opts.Comparators...)
	r.logger().V(1).Info("collection diff",
		"uri", collection.URI(),
		"create", len(partition.Create),
		"update", len(partition.Update),
		"delete", len(partition.Delete),
	)

	deleted := make([]bool, len(partition.Delete))
	position := make(map[*graph.Resource]int, len(partition.Delete))
	for idx, item := range partition.Delete {
		position[item] = idx
	}

	outcome, err := diff.Apply(ctx, partition, diff.Strategies[*graph.Resource, resource.Representation, SyncInfo]{
		Delete: func(ctx context.Context, item *graph.Resource) error {
			removed, err := r.deleteItem(ctx, collection, item, opts)
			deleted[position[item]] = removed
			return err
		},
		Update: func(ctx context.Context, item *graph.Resource, itemDocument resource.Representation) (SyncInfo, error) {
			return r.updateMember(ctx, collection, item, itemDocument, opts)
		},
		Create: func(ctx context.Context, itemDocument resource.Representation) (SyncInfo, error) {
			return r.createItem(ctx, collection, itemDocument, opts)
		},
	}, opts.BatchSize)
	if err != nil {
		return CollectionResult{}, err
	}

	for idx, item := range partition.Delete {
		if deleted[idx] {
			result.Deleted = append(result.Deleted, item)
		}
	}
	for _, info := range outcome.Updated {
		if info.Resource != nil {
			result.Updated = append(result.Updated, info.Resource)
			result.SyncInfos = append(result.SyncInfos, info)
		}
	}
	for _, info := range outcome.Created {
		if info.Resource != nil {
			result.Created = append(result.Created, info.Resource)
			result.SyncInfos = append(result.SyncInfos, info)
		}
	}

	if err := r.runStrategies(ctx, result.SyncInfos, opts, strategies); err != nil {
		return result, err
	}
	return result, nil
}

// GetCollectionInCollection synchronises collection against a collection
// document.
func (r *DefaultOrchestrator) GetCollectionInCollection(
	ctx context.Context,
	collection *graph.Resource,
	document resource.Representation,
	opts Options,
	strategies ...Strategy,
) (*graph.Resource, error) {
	if _, err := r.DiffCollection(ctx, collection, document, opts, strategies...); err != nil {
		return collection, err
	}
	return collection, nil
}

// GetResourceInNamedCollection finds or creates document in the collection
// attached to parent under named.Name.
func (r *DefaultOrchestrator) GetResourceInNamedCollection(
	ctx context.Context,
	parent *graph.Resource,
	document resource.Representation,
	named Named,
	opts Options,
	strategies ...Strategy,
) (*graph.Resource, error) {
	collection, err := r.resolveNamedCollection(ctx, parent, named, opts)
	if err != nil {
		return nil, err
	}
	return r.GetResourceInCollection(ctx, collection, document, opts, strategies...)
}

// GetCollectionInNamedCollection synchronises the collection attached to
// parent under named.Name against the collection document given directly.
func (r *DefaultOrchestrator) GetCollectionInNamedCollection(
	ctx context.Context,
	parent *graph.Resource,
	document resource.Representation,
	named Named,
	opts Options,
	strategies ...Strategy,
) (*graph.Resource, error) {
	collection, err := r.resolveNamedCollection(ctx, parent, named, opts)
	if err != nil {
		return parent, err
	}
	return r.GetCollectionInCollection(ctx, collection, document, opts, strategies...)
}

// GetNamedCollectionInNamedCollection reads the collection document from
// the document attribute named.DocumentName. A document without it leaves
// parent untouched.
func (r *DefaultOrchestrator) GetNamedCollectionInNamedCollection(
	ctx context.Context,
	parent *graph.Resource,
	document resource.Representation,
	named Named,
	opts Options,
	strategies ...Strategy,
) (*graph.Resource, error) {
	collectionDocument, ok := document.Child(named.documentName())
	if !ok {
		r.logger().V(1).Info("document has no collection", "name", named.documentName(), "parent", parent.URI())
		return parent, nil
	}
	if collectionDocument.Items == nil {
		collectionDocument.Items = []resource.Representation{}
	}
	if _, err := r.GetCollectionInNamedCollection(ctx, parent, collectionDocument, named, opts, strategies...); err != nil {
		return parent, err
	}
	return parent, nil
}

func (r *DefaultOrchestrator) resolveNamedCollection(ctx context.Context, parent *graph.Resource, named Named, opts Options) (*graph.Resource, error) {
	if _, err := r.ensureHydrated(ctx, parent, opts.withDefaults()); err != nil {
		return nil, err
	}
	return r.namedCollection(parent, named)
}

// collectionIdentity makes both sides of a collection diff comparable. Links
// are resolved against the collection URI; document hrefs are mapped through
// the resolver first.
func collectionIdentity(collection *graph.Resource, opts Options) diff.Identity {
	base := collection.URI()
	return diff.Identity{
		Item: func(representation resource.Representation) resource.Representation {
			return absoluteLinks(representation, base, nil)
		},
		Document: func(representation resource.Representation) resource.Representation {
			return absoluteLinks(representation, base, opts.Resolver.Resolve)
		},
	}
}

func absoluteLinks(representation resource.Representation, base string, resolve func(string) string) resource.Representation {
	if len(representation.Links) == 0 {
		return representation
	}
	out := representation
	out.Links = make(resource.Links, len(representation.Links))
	for idx, link := range representation.Links {
		if resolve != nil {
			link.Href = resolve(link.Href)
		}
		link.Href = resource.ResolveReference(base, link.Href)
		out.Links[idx] = link
	}
	return out
}
