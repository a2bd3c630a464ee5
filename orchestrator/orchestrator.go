package orchestrator

import (
	"context"

	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/resource"
)

type ResourceSyncer interface {
	GetResource(ctx context.Context, target *graph.Resource, document resource.Representation, opts Options, strategies ...Strategy) (*graph.Resource, error)
	GetResourceInCollection(ctx context.Context, collection *graph.Resource, document resource.Representation, opts Options, strategies ...Strategy) (*graph.Resource, error)
	GetSingleton(ctx context.Context, parent *graph.Resource, document resource.Representation, named Named, opts Options, strategies ...Strategy) (*graph.Resource, error)
}

type CollectionSyncer interface {
	DiffCollection(ctx context.Context, collection *graph.Resource, document resource.Representation, opts Options, strategies ...Strategy) (CollectionResult, error)
	GetCollectionInCollection(ctx context.Context, collection *graph.Resource, document resource.Representation, opts Options, strategies ...Strategy) (*graph.Resource, error)
	GetResourceInNamedCollection(ctx context.Context, parent *graph.Resource, document resource.Representation, named Named, opts Options, strategies ...Strategy) (*graph.Resource, error)
	GetCollectionInNamedCollection(ctx context.Context, parent *graph.Resource, document resource.Representation, named Named, opts Options, strategies ...Strategy) (*graph.Resource, error)
	GetNamedCollectionInNamedCollection(ctx context.Context, parent *graph.Resource, document resource.Representation, named Named, opts Options, strategies ...Strategy) (*graph.Resource, error)
}

type URIListSyncer interface {
	GetURIListOnNamedCollection(ctx context.Context, parent *graph.Resource, document resource.Representation, named Named, opts Options) (*graph.Resource, error)
}

type FormReader interface {
	Forms(ctx context.Context, target *graph.Resource) (map[string]resource.Form, error)
}

type Orchestrator interface {
	ResourceSyncer
	CollectionSyncer
	URIListSyncer
	FormReader
	Sync(ctx context.Context, target *graph.Resource, document resource.Representation, request Request, opts Options) (*graph.Resource, error)
}
