package orchestrator

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/crmarques/hypersync/debugctx"
	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/graph"
	"github.com/crmarques/hypersync/resource"
	"github.com/crmarques/hypersync/scheduler"
	"github.com/crmarques/hypersync/transport"
)

func (r *DefaultOrchestrator) requireClient() (*graph.Client, error) {
	if r == nil || r.Client == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "graph client is not configured", nil)
	}
	return r.Client, nil
}

func (r *DefaultOrchestrator) startSpan(ctx context.Context, operation string, target *graph.Resource) (context.Context, trace.Span) {
	return r.tracer().Start(ctx, "orchestrator."+operation,
		trace.WithAttributes(attribute.String("hypersync.uri", target.URI())),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ensureHydrated synchronises target and returns it.
func (r *DefaultOrchestrator) ensureHydrated(ctx context.Context, target *graph.Resource, opts Options) (*graph.Resource, error) {
	client, err := r.requireClient()
	if err != nil {
		return nil, err
	}
	return client.Synchronise(ctx, target, opts.loadOptions())
}

// namedCollection returns the collection attached to parent under
// named.Name, attaching a sparse one from the parent's links if needed.
func (r *DefaultOrchestrator) namedCollection(parent *graph.Resource, named Named) (*graph.Resource, error) {
	if existing, ok := parent.Collection(named.Name); ok {
		return existing, nil
	}
	child, err := r.linkedResource(parent, named.rel())
	if err != nil {
		return nil, err
	}
	if err := parent.AttachCollection(named.Name, child); err != nil {
		return nil, err
	}
	return child, nil
}

func (r *DefaultOrchestrator) namedSingleton(parent *graph.Resource, named Named) (*graph.Resource, error) {
	if existing, ok := parent.Singleton(named.Name); ok {
		return existing, nil
	}
	child, err := r.linkedResource(parent, named.rel())
	if err != nil {
		return nil, err
	}
	if err := parent.AttachSingleton(named.Name, child); err != nil {
		return nil, err
	}
	return child, nil
}

// linkedResource tracks the target of the first rel link of parent. A
// missing link is a contract error.
func (r *DefaultOrchestrator) linkedResource(parent *graph.Resource, rel string) (*graph.Resource, error) {
	client, err := r.requireClient()
	if err != nil {
		return nil, err
	}
	request, err := transport.Get(parent.Links(), resource.Rel(rel), resource.MediaTypeJSON)
	if err != nil {
		return nil, err
	}
	return client.Resource(resource.ResolveReference(parent.URI(), request.URI)), nil
}

// form loads the form linked from target under rel. ok is false when
// target advertises no such form.
func (r *DefaultOrchestrator) form(ctx context.Context, target *graph.Resource, rel string, opts Options) (resource.Form, bool, error) {
	client, err := r.requireClient()
	if err != nil {
		return resource.Form{}, false, err
	}
	request, err := transport.Get(target.Links(), resource.Rel(rel), resource.MediaTypeJSON)
	if faults.IsCategory(err, faults.ContractError) {
		return resource.Form{}, false, nil
	}
	if err != nil {
		return resource.Form{}, false, err
	}

	node := client.Resource(resource.ResolveReference(target.URI(), request.URI))
	if _, err := client.Synchronise(ctx, node, graph.LoadOptions{ForceLoad: opts.ForceLoad}); err != nil {
		return resource.Form{}, false, err
	}
	if node.Status() != graph.StatusHydrated {
		debugctx.Printf(ctx, "form %s is %s", node.URI(), node.Status())
		return resource.Form{}, false, nil
	}

	form := resource.FormFromRepresentation(node.Document())
	if submit := form.Submit(); submit != "" {
		form.Links = form.Links.Replace(resource.RelSubmit, resource.ResolveReference(node.URI(), submit))
	}
	return form, true, nil
}

// Forms returns the create and edit forms target advertises, keyed by rel.
func (r *DefaultOrchestrator) Forms(ctx context.Context, target *graph.Resource) (map[string]resource.Form, error) {
	if _, err := r.ensureHydrated(ctx, target, Options{}); err != nil {
		return nil, err
	}
	forms := map[string]resource.Form{}
	for _, rel := range []string{resource.RelCreateForm, resource.RelEditForm} {
		form, ok, err := r.form(ctx, target, rel, Options{})
		if err != nil {
			return nil, err
		}
		if ok {
			forms[rel] = form
		}
	}
	return forms, nil
}

// tolerate logs item level failures so that sibling work continues.
// Contract errors, cancellation and StopOnError still propagate.
func (r *DefaultOrchestrator) tolerate(ctx context.Context, opts Options, err error, message string, target string) error {
	if err == nil {
		return nil
	}
	if opts.StopOnError || faults.IsFatal(err) || ctx.Err() != nil ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, scheduler.ErrClosed) {
		return err
	}
	r.logger().Error(err, message, "uri", target)
	return nil
}

// runStrategies runs each strategy over infos. Strategies run one after
// the other; a strategy runs concurrently across infos, bounded by
// ChildStrategyBatchSize.
func (r *DefaultOrchestrator) runStrategies(ctx context.Context, infos []SyncInfo, opts Options, strategies []Strategy) error {
	for _, strategy := range strategies {
		if strategy == nil {
			continue
		}
		group, groupCtx := errgroup.WithContext(ctx)
		if opts.ChildStrategyBatchSize > 0 {
			group.SetLimit(opts.ChildStrategyBatchSize)
		}
		for _, info := range infos {
			if info.Resource == nil {
				continue
			}
			group.Go(func() error {
				return strategy(groupCtx, info, opts)
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	return nil
}
