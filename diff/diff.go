// Package diff partitions server-held items and document items into the
// create, update and delete sets of a synchronisation, and replays them in
// the fixed delete, update, create order.
package diff

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/crmarques/hypersync/compare"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/resource"
)

type Pair[L any, R any] struct {
	Left  L
	Right R
}

// Partition is the three-way split of a diff. Create holds unmatched
// document items, Delete unmatched server items and Update the matched pairs.
type Partition[L any, R any] struct {
	Create []R
	Update []Pair[L, R]
	Delete []L
}

// Compute pairs left and right items with each matcher in turn. Items paired
// by an earlier matcher are not offered to later ones and no item is paired
// twice.
func Compute[L any, R any](left []L, right []R, matchers ...func(L, R) bool) Partition[L, R] {
	deleteItems := slices.Clone(left)
	createItems := slices.Clone(right)
	updateItems := make([]Pair[L, R], 0)

	for _, match := range matchers {
		if match == nil {
			continue
		}

		var leftMatched, rightMatched []int
		taken := make(map[int]struct{})
		for i := range deleteItems {
			for j := range createItems {
				if _, used := taken[j]; used {
					continue
				}
				if !match(deleteItems[i], createItems[j]) {
					continue
				}
				taken[j] = struct{}{}
				leftMatched = append(leftMatched, i)
				rightMatched = append(rightMatched, j)
				updateItems = append(updateItems, Pair[L, R]{Left: deleteItems[i], Right: createItems[j]})
				break
			}
		}

		deleteItems = removeIndices(deleteItems, leftMatched)
		createItems = removeIndices(createItems, rightMatched)
	}

	return Partition[L, R]{
		Create: createItems,
		Update: updateItems,
		Delete: deleteItems,
	}
}

// removeIndices drops the given positions, highest first so that earlier
// positions stay valid.
func removeIndices[T any](values []T, indices []int) []T {
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	for idx := len(sorted) - 1; idx >= 0; idx-- {
		position := sorted[idx]
		values = slices.Delete(values, position, position+1)
	}
	return values
}

// Collection diffs the members of a tracked collection against document
// items using comparators in order. No comparators means compare.Default.
func Collection(
	items []*graph.Resource,
	documents []resource.Representation,
	comparators ...compare.Comparator,
) Partition[*graph.Resource, resource.Representation] {
	return CollectionIdentified(items, documents, Identity{}, comparators...)
}

// Identity rewrites representations into the form comparators see. Item
// applies to tracked members, Document to document items; nil leaves that
// side as given.
type Identity struct {
	Item     func(resource.Representation) resource.Representation
	Document func(resource.Representation) resource.Representation
}

func rewrite(fn func(resource.Representation) resource.Representation, representation resource.Representation) resource.Representation {
	if fn == nil {
		return representation
	}
	return fn(representation)
}

// CollectionIdentified is Collection with both sides rewritten by identity
// before comparison. The partition carries the original document items.
func CollectionIdentified(
	items []*graph.Resource,
	documents []resource.Representation,
	identity Identity,
	comparators ...compare.Comparator,
) Partition[*graph.Resource, resource.Representation] {
	if len(comparators) == 0 {
		comparators = compare.Default()
	}

	representations := make(map[*graph.Resource]resource.Representation, len(items))
	for _, item := range items {
		representations[item] = rewrite(identity.Item, item.Representation())
	}
	keys := make([]resource.Representation, len(documents))
	positions := make([]int, len(documents))
	for idx, document := range documents {
		keys[idx] = rewrite(identity.Document, document)
		positions[idx] = idx
	}

	matchers := make([]func(*graph.Resource, int) bool, 0, len(comparators))
	for _, comparator := range comparators {
		matchers = append(matchers, func(left *graph.Resource, right int) bool {
			return comparator(representations[left], keys[right])
		})
	}
	indexed := Compute(items, positions, matchers...)

	partition := Partition[*graph.Resource, resource.Representation]{
		Create: make([]resource.Representation, 0, len(indexed.Create)),
		Update: make([]Pair[*graph.Resource, resource.Representation], 0, len(indexed.Update)),
		Delete: indexed.Delete,
	}
	for _, position := range indexed.Create {
		partition.Create = append(partition.Create, documents[position])
	}
	for _, pair := range indexed.Update {
		partition.Update = append(partition.Update, Pair[*graph.Resource, resource.Representation]{Left: pair.Left, Right: documents[pair.Right]})
	}
	return partition
}

// Representations diffs two plain representation lists.
func Representations(
	left []resource.Representation,
	right []resource.Representation,
	comparators ...compare.Comparator,
) Partition[resource.Representation, resource.Representation] {
	if len(comparators) == 0 {
		comparators = compare.Default()
	}
	matchers := make([]func(resource.Representation, resource.Representation) bool, 0, len(comparators))
	for _, comparator := range comparators {
		matchers = append(matchers, comparator)
	}
	return Compute(left, right, matchers...)
}

// URIList diffs two URI lists as sets. Order follows the inputs and
// duplicates are dropped.
func URIList(resourceURIs []string, documentURIs []string) (create []string, remove []string) {
	current := make(map[string]struct{}, len(resourceURIs))
	for _, uri := range resourceURIs {
		current[strings.TrimSpace(uri)] = struct{}{}
	}
	desired := make(map[string]struct{}, len(documentURIs))
	for _, uri := range documentURIs {
		desired[strings.TrimSpace(uri)] = struct{}{}
	}

	create = make([]string, 0)
	seen := make(map[string]struct{})
	for _, uri := range documentURIs {
		uri = strings.TrimSpace(uri)
		if _, exists := current[uri]; exists || uri == "" {
			continue
		}
		if _, duplicate := seen[uri]; duplicate {
			continue
		}
		seen[uri] = struct{}{}
		create = append(create, uri)
	}

	remove = make([]string, 0)
	for _, uri := range resourceURIs {
		uri = strings.TrimSpace(uri)
		if _, kept := desired[uri]; kept || uri == "" {
			continue
		}
		if _, duplicate := seen[uri]; duplicate {
			continue
		}
		seen[uri] = struct{}{}
		remove = append(remove, uri)
	}
	return create, remove
}

// Strategies performs the network side of a diff. Nil strategies skip their
// phase.
type Strategies[L any, R any, T any] struct {
	Delete func(ctx context.Context, item L) error
	Update func(ctx context.Context, item L, document R) (T, error)
	Create func(ctx context.Context, document R) (T, error)
}

// Result carries the strategy results in partition order.
type Result[T any] struct {
	Created []T
	Updated []T
}

// Apply runs deletes, then updates, then creates. Each phase finishes before
// the next starts. Within a phase work runs concurrently, at most batchSize
// at a time when batchSize is positive.
func Apply[L any, R any, T any](
	ctx context.Context,
	partition Partition[L, R],
	strategies Strategies[L, R, T],
	batchSize int,
) (Result[T], error) {
	var result Result[T]

	if strategies.Delete != nil {
		err := runPhase(ctx, partition.Delete, batchSize, func(ctx context.Context, item L) (struct{}, error) {
			return struct{}{}, strategies.Delete(ctx, item)
		}, nil)
		if err != nil {
			return result, err
		}
	}

	if strategies.Update != nil {
		result.Updated = make([]T, len(partition.Update))
		err := runPhase(ctx, partition.Update, batchSize, func(ctx context.Context, pair Pair[L, R]) (T, error) {
			return strategies.Update(ctx, pair.Left, pair.Right)
		}, result.Updated)
		if err != nil {
			return result, err
		}
	}

	if strategies.Create != nil {
		result.Created = make([]T, len(partition.Create))
		err := runPhase(ctx, partition.Create, batchSize, strategies.Create, result.Created)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func runPhase[I any, T any](
	ctx context.Context,
	inputs []I,
	batchSize int,
	run func(ctx context.Context, input I) (T, error),
	results []T,
) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if batchSize > 0 {
		group.SetLimit(batchSize)
	}
	for idx, input := range inputs {
		group.Go(func() error {
			value, err := run(groupCtx, input)
			if err != nil {
				return err
			}
			if results != nil {
				results[idx] = value
			}
			return nil
		})
	}
	return group.Wait()
}
