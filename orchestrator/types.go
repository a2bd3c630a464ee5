package orchestrator

import (
	"context"
	"strings"

	"github.com/crmarques/hypersync/compare"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/merge"
	"github.com/crmarques/hypersync/resolver"
	"github.com/crmarques/hypersync/resource"
)

type Action int

const (
	ActionCreate Action = iota + 1
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "none"
	}
}

// SyncInfo pairs a server resource with the document it was synchronised
// against. Strategies run once per SyncInfo.
type SyncInfo struct {
	Resource *graph.Resource
	Document resource.Representation
	Action   Action
}

// Strategy continues a synchronisation below a resource produced by a
// parent step, typically syncing one of its named children.
type Strategy func(ctx context.Context, info SyncInfo, opts Options) error

// Named addresses a child attached to a parent resource under an attribute
// name.
type Named struct {
	// Name is the attribute the child is attached under.
	Name string
	// Rel locates the child; defaults to the dash-cased Name.
	Rel string
	// DocumentName is the document attribute holding the child document;
	// defaults to Name.
	DocumentName string
}

func (n Named) rel() string {
	if rel := strings.TrimSpace(n.Rel); rel != "" {
		return rel
	}
	return resource.DashCase(n.Name)
}

func (n Named) documentName() string {
	if name := strings.TrimSpace(n.DocumentName); name != "" {
		return name
	}
	return n.Name
}

// ConfirmDelete is asked before each delete; returning false skips it.
type ConfirmDelete func(ctx context.Context, target *graph.Resource) (bool, error)

type Options struct {
	// Comparators pair server items with document items; empty means
	// compare.Default.
	Comparators []compare.Comparator
	// BatchSize bounds concurrent requests within a diff phase.
	BatchSize int
	// ChildStrategyBatchSize bounds concurrent strategy runs.
	ChildStrategyBatchSize int
	ForceLoad              bool
	MappedTitleAttribute   string
	// Resolver is shared by the whole call tree; a fresh table is used when
	// nil.
	Resolver       resolver.Resolver
	PooledResolver merge.PooledResolver
	IsTracked      func(field string) bool
	ConfirmDelete  ConfirmDelete
	// ReplaceURIList sends the desired list in one PATCH instead of a POST
	// of additions and a DELETE of removals.
	ReplaceURIList bool
	// StopOnError propagates item level failures instead of logging them.
	StopOnError bool
}

func (o Options) withDefaults() Options {
	if o.Resolver == nil {
		o.Resolver = resolver.NewTable()
	}
	if len(o.Comparators) == 0 {
		o.Comparators = compare.Default()
	}
	return o
}

func (o Options) loadOptions() graph.LoadOptions {
	return graph.LoadOptions{
		ForceLoad:            o.ForceLoad,
		MappedTitleAttribute: o.MappedTitleAttribute,
	}
}

// CollectionResult reports what a collection diff did.
type CollectionResult struct {
	SyncInfos []SyncInfo
	Created   []*graph.Resource
	Updated   []*graph.Resource
	Deleted   []*graph.Resource
}
