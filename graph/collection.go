package graph

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

// SynchroniseCollection loads a collection and turns its feed into sparse
// member resources.
func (c *Client) SynchroniseCollection(ctx context.Context, collection *Resource, opts LoadOptions) (*Resource, error) {
	if collection == nil {
		return nil, faults.Contract("cannot synchronise an untracked collection")
	}
	return c.Synchronise(ctx, collection, opts)
}

// SynchroniseItems hydrates every member of collection. A member answering
// 404 is evicted and the collection is marked stale.
func (c *Client) SynchroniseItems(ctx context.Context, collection *Resource, opts LoadOptions) error {
	if collection == nil {
		return faults.Contract("cannot synchronise items of an untracked collection")
	}

	itemOpts := opts
	itemOpts.HydrateItems = false

	group, groupCtx := errgroup.WithContext(ctx)
	if opts.BatchSize > 0 {
		group.SetLimit(opts.BatchSize)
	}
	for _, item := range collection.Items() {
		group.Go(func() error {
			_, err := c.Synchronise(groupCtx, item, itemOpts)
			if err == nil {
				return nil
			}
			if faults.IsCategory(err, faults.NotFoundError) {
				collection.RemoveItem(item)
				collection.MarkStale()
				c.logger.V(1).Info("evicted missing collection item", "collection", collection.URI(), "item", item.URI())
				return nil
			}
			return err
		})
	}
	return group.Wait()
}

func (c *Client) applyFeed(collection *Resource, representation resource.Representation, opts LoadOptions) {
	base := collection.URI()

	items := make([]*Resource, 0, len(representation.Items))
	seen := make(map[*Resource]struct{}, len(representation.Items))
	for _, entry := range representation.Items {
		feed, ok := resource.FeedItemOf(entry)
		if !ok {
			continue
		}
		item := c.network.Track(resource.ResolveReference(base, feed.ID))
		if _, duplicate := seen[item]; duplicate {
			continue
		}
		seen[item] = struct{}{}
		item.applyFeedItem(feed, entry, opts)
		items = append(items, item)
	}
	collection.setItems(items)
}
