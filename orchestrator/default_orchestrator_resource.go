package orchestrator

import (
	"context"

	"github.com/crmarques/hypersync/diff"
	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/merge"
	"github.com/crmarques/hypersync/resource"
)

// GetResource synchronises target against document in place: target is
// hydrated, merged with document through its edit form and updated when a
// form field changed. Strategies then run for the pair.
func (r *DefaultOrchestrator) GetResource(
	ctx context.Context,
	target *graph.Resource,
	document resource.Representation,
	opts Options,
	strategies ...Strategy,
) (_ *graph.Resource, err error) {
	ctx, span := r.startSpan(ctx, "GetResource", target)
	defer func() { endSpan(span, err) }()

	opts = opts.withDefaults()
	info, err := r.updateItem(ctx, target, document, opts)
	if err != nil {
		return target, err
	}
	if info.Resource == nil {
		return target, nil
	}
	if err := r.runStrategies(ctx, []SyncInfo{info}, opts, strategies); err != nil {
		return target, err
	}
	return target, nil
}

// GetResourceInCollection finds the member of collection matching document,
// creating it when none matches, and synchronises it. Other members are
// left alone.
func (r *DefaultOrchestrator) GetResourceInCollection(
	ctx context.Context,
	collection *graph.Resource,
	document resource.Representation,
	opts Options,
	strategies ...Strategy,
) (_ *graph.Resource, err error) {
	ctx, span := r.startSpan(ctx, "GetResourceInCollection", collection)
	defer func() { endSpan(span, err) }()

	opts = opts.withDefaults()
	if _, err := r.ensureHydrated(ctx, collection, opts); err != nil {
		return nil, err
	}

	partition := diff.CollectionIdentified(collection.Items(), []resource.Representation{document}, collectionIdentity(collection, opts), opts.Comparators...)
	var info SyncInfo
	if len(partition.Update) > 0 {
		info, err = r.updateMember(ctx, collection, partition.Update[0].Left, document, opts)
	} else {
		info, err = r.createItem(ctx, collection, document, opts)
	}
	if err != nil {
		return nil, err
	}
	if info.Resource == nil {
		return nil, nil
	}
	if err := r.runStrategies(ctx, []SyncInfo{info}, opts, strategies); err != nil {
		return info.Resource, err
	}
	return info.Resource, nil
}

// GetSingleton synchronises the child attached to parent under named.Name
// against the document attribute named.DocumentName. A document without
// that attribute leaves parent untouched.
func (r *DefaultOrchestrator) GetSingleton(
	ctx context.Context,
	parent *graph.Resource,
	document resource.Representation,
	named Named,
	opts Options,
	strategies ...Strategy,
) (_ *graph.Resource, err error) {
	ctx, span := r.startSpan(ctx, "GetSingleton", parent)
	defer func() { endSpan(span, err) }()

	childDocument, ok := document.Child(named.documentName())
	if !ok {
		r.logger().V(1).Info("document has no singleton", "name", named.documentName(), "parent", parent.URI())
		return parent, nil
	}

	opts = opts.withDefaults()
	if _, err := r.ensureHydrated(ctx, parent, opts); err != nil {
		return parent, err
	}
	child, err := r.namedSingleton(parent, named)
	if err != nil {
		return parent, err
	}
	return r.GetResource(ctx, child, childDocument, opts, strategies...)
}

// updateItem hydrates target and sends a PUT when the edit form projection
// of document differs from it. A resource without an edit form is synced
// without update.
func (r *DefaultOrchestrator) updateItem(ctx context.Context, target *graph.Resource, document resource.Representation, opts Options) (SyncInfo, error) {
	client, err := r.requireClient()
	if err != nil {
		return SyncInfo{}, err
	}
	if target == nil {
		return SyncInfo{}, faults.Contract("cannot synchronise an untracked resource")
	}

	if _, err := client.Synchronise(ctx, target, opts.loadOptions()); err != nil {
		return SyncInfo{}, err
	}
	switch target.Status() {
	case graph.StatusForbidden, graph.StatusUnknown:
		r.logger().V(1).Info("skipping resource that could not be loaded", "uri", target.URI(), "status", target.Status().String())
		return SyncInfo{}, nil
	}

	recordDocument(opts, document, target)

	form, ok, err := r.form(ctx, target, resource.RelEditForm, opts)
	if err != nil {
		return SyncInfo{}, r.tolerate(ctx, opts, err, "failed to load edit form", target.URI())
	}
	if !ok {
		r.logger().V(1).Info("resource has no edit form; skipping update", "uri", target.URI())
		return SyncInfo{Resource: target, Document: document, Action: ActionUpdate}, nil
	}

	merged, changed, err := merge.EditMerge(ctx, target.Representation(), document, form, r.mergeOptions(opts, true))
	if err != nil {
		return SyncInfo{}, r.tolerate(ctx, opts, err, "failed to merge document", target.URI())
	}
	if changed {
		merged.Items = nil
		if _, err := client.Update(ctx, target, graph.UpdateRequest{Target: form.Submit(), Payload: merged}); err != nil {
			return SyncInfo{}, r.tolerate(ctx, opts, err, "update failed", target.URI())
		}
	}
	return SyncInfo{Resource: target, Document: document, Action: ActionUpdate}, nil
}

// updateMember is updateItem for a collection member. A member that turns
// out to be gone is evicted instead.
func (r *DefaultOrchestrator) updateMember(
	ctx context.Context,
	collection *graph.Resource,
	item *graph.Resource,
	document resource.Representation,
	opts Options,
) (SyncInfo, error) {
	info, err := r.updateItem(ctx, item, document, opts)
	if faults.IsCategory(err, faults.NotFoundError) {
		collection.RemoveItem(item)
		collection.MarkStale()
		r.logger().V(1).Info("evicted missing collection item", "collection", collection.URI(), "item", item.URI())
		return SyncInfo{}, nil
	}
	return info, err
}

// createItem submits document through the collection's create form.
func (r *DefaultOrchestrator) createItem(ctx context.Context, collection *graph.Resource, document resource.Representation, opts Options) (SyncInfo, error) {
	client, err := r.requireClient()
	if err != nil {
		return SyncInfo{}, err
	}

	form, ok, err := r.form(ctx, collection, resource.RelCreateForm, opts)
	if err != nil {
		return SyncInfo{}, r.tolerate(ctx, opts, err, "failed to load create form", collection.URI())
	}
	if !ok {
		return SyncInfo{}, faults.MissingInterface(resource.RelCreateForm)
	}

	payload, err := merge.CreateMerge(ctx, document, form, r.mergeOptions(opts, false))
	if err != nil {
		return SyncInfo{}, r.tolerate(ctx, opts, err, "failed to merge document", collection.URI())
	}
	created, err := client.Create(ctx, collection, graph.CreateRequest{Target: form.Submit(), Payload: payload})
	if err != nil {
		return SyncInfo{}, r.tolerate(ctx, opts, err, "create failed", collection.URI())
	}
	if created == nil {
		return SyncInfo{}, nil
	}

	if documentURI := document.URI(); documentURI != "" {
		opts.Resolver.Add(documentURI, created.URI())
	}
	return SyncInfo{Resource: created, Document: document, Action: ActionCreate}, nil
}

// deleteItem removes item from collection after confirmation.
func (r *DefaultOrchestrator) deleteItem(ctx context.Context, collection *graph.Resource, item *graph.Resource, opts Options) (bool, error) {
	client, err := r.requireClient()
	if err != nil {
		return false, err
	}

	if opts.ConfirmDelete != nil {
		confirmed, err := opts.ConfirmDelete(ctx, item)
		if err != nil {
			return false, err
		}
		if !confirmed {
			r.logger().Info("delete skipped", "uri", item.URI())
			return false, nil
		}
	}

	if err := client.DeleteFromCollection(ctx, collection, item); err != nil {
		return false, r.tolerate(ctx, opts, err, "delete failed", item.URI())
	}
	if item.Status() != graph.StatusDeleted {
		return false, nil
	}
	opts.Resolver.Remove(item.URI())
	return true, nil
}

func (r *DefaultOrchestrator) mergeOptions(opts Options, skipUnchanged bool) merge.Options {
	return merge.Options{
		Resolver:                      opts.Resolver,
		PooledResolver:                opts.PooledResolver,
		IsTracked:                     opts.IsTracked,
		UndefinedWhenNoUpdateRequired: skipUnchanged,
		Logger:                        r.logger(),
	}
}

// recordDocument maps the URI a document uses for a resource to the URI the
// resource really has.
func recordDocument(opts Options, document resource.Representation, target *graph.Resource) {
	documentURI := document.URI()
	if documentURI == "" || opts.Resolver == nil {
		return
	}
	if documentURI != target.URI() {
		opts.Resolver.Update(documentURI, target.URI())
	}
}
