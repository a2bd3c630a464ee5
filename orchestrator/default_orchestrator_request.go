package orchestrator

import (
	"context"
	"fmt"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/resource"
)

type Kind int

const (
	// KindResource syncs the target itself against the document.
	KindResource Kind = iota
	// KindCollection syncs the target's members against the document items.
	KindCollection
	KindSingleton
	KindNamedCollection
	KindURIList
)

var kindNames = map[Kind]string{
	KindResource:        "resource",
	KindCollection:      "collection",
	KindSingleton:       "singleton",
	KindNamedCollection: "named-collection",
	KindURIList:         "uri-list",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String.
func ParseKind(value string) (Kind, error) {
	for kind, name := range kindNames {
		if name == value {
			return kind, nil
		}
	}
	return 0, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("unsupported sync kind %q", value), nil)
}

// Request is one node of a declarative sync tree. Children run as
// strategies for every resource the node produces.
type Request struct {
	Kind     Kind
	Named    Named
	Children []Request
}

// Sync interprets request against target and document.
func (r *DefaultOrchestrator) Sync(
	ctx context.Context,
	target *graph.Resource,
	document resource.Representation,
	request Request,
	opts Options,
) (*graph.Resource, error) {
	opts = opts.withDefaults()
	strategies := r.strategiesFor(request.Children)

	switch request.Kind {
	case KindResource:
		return r.GetResource(ctx, target, document, opts, strategies...)
	case KindCollection:
		return r.GetCollectionInCollection(ctx, target, document, opts, strategies...)
	case KindSingleton:
		return r.GetSingleton(ctx, target, document, request.Named, opts, strategies...)
	case KindNamedCollection:
		return r.GetNamedCollectionInNamedCollection(ctx, target, document, request.Named, opts, strategies...)
	case KindURIList:
		if len(request.Children) > 0 {
			return nil, faults.Contract("uri-list requests cannot have children")
		}
		return r.GetURIListOnNamedCollection(ctx, target, document, request.Named, opts)
	default:
		return nil, faults.Contract(fmt.Sprintf("unsupported sync request %s", request.Kind))
	}
}

// Strategy turns request into a strategy applied to each produced resource.
func (r *DefaultOrchestrator) Strategy(request Request) Strategy {
	return func(ctx context.Context, info SyncInfo, opts Options) error {
		_, err := r.Sync(ctx, info.Resource, info.Document, request, opts)
		return err
	}
}

func (r *DefaultOrchestrator) strategiesFor(requests []Request) []Strategy {
	strategies := make([]Strategy, 0, len(requests))
	for _, request := range requests {
		strategies = append(strategies, r.Strategy(request))
	}
	return strategies
}

// SingletonStrategy syncs the singleton named by named below every produced
// resource, then runs children on it.
func (r *DefaultOrchestrator) SingletonStrategy(named Named, children ...Strategy) Strategy {
	return func(ctx context.Context, info SyncInfo, opts Options) error {
		_, err := r.GetSingleton(ctx, info.Resource, info.Document, named, opts, children...)
		return err
	}
}

// NamedCollectionStrategy syncs the named collection below every produced
// resource, then runs children on its members.
func (r *DefaultOrchestrator) NamedCollectionStrategy(named Named, children ...Strategy) Strategy {
	return func(ctx context.Context, info SyncInfo, opts Options) error {
		_, err := r.GetNamedCollectionInNamedCollection(ctx, info.Resource, info.Document, named, opts, children...)
		return err
	}
}

// URIListStrategy syncs the named uri-list below every produced resource.
func (r *DefaultOrchestrator) URIListStrategy(named Named) Strategy {
	return func(ctx context.Context, info SyncInfo, opts Options) error {
		_, err := r.GetURIListOnNamedCollection(ctx, info.Resource, info.Document, named, opts)
		return err
	}
}
