// Package graph tracks the network of data exposed by a hypermedia API. Each
// Resource carries a lifecycle State that decides when it must be fetched and
// how a mutation outcome changes it. Every request goes through the session
// Scheduler.
package graph

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/crmarques/hypersync/debugctx"
	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
	"github.com/crmarques/hypersync/scheduler"
	"github.com/crmarques/hypersync/transport"
)

type Client struct {
	transport transport.Transport
	scheduler *scheduler.Scheduler
	network   *Network
	logger    logr.Logger
	now       func() time.Time

	fetches singleflight.Group
}

type ClientOption func(*Client)

func WithNetwork(network *Network) ClientOption {
	return func(c *Client) {
		if network != nil {
			c.network = network
		}
	}
}

func WithLogger(logger logr.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(t transport.Transport, s *scheduler.Scheduler, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		scheduler: s,
		network:   NewNetwork(),
		logger:    logr.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.scheduler == nil {
		c.scheduler = scheduler.New(scheduler.WithLogger(c.logger))
	}
	return c
}

func (c *Client) Network() *Network {
	return c.network
}

func (c *Client) Scheduler() *scheduler.Scheduler {
	return c.scheduler
}

// Resource returns the tracked node for uri.
func (c *Client) Resource(uri string) *Resource {
	return c.network.Track(uri)
}

// Synchronise brings r up to date according to its status. Fetch failures
// other than 404 and cancellation leave r in status unknown and return nil so
// that sibling work carries on.
func (c *Client) Synchronise(ctx context.Context, r *Resource, opts LoadOptions) (*Resource, error) {
	if r == nil {
		return nil, faults.Contract("cannot synchronise an untracked resource")
	}

	status := r.Status()
	uri := r.URI()
	switch {
	case status == StatusVirtual:
		return r, nil
	case status == StatusDeleted || status == StatusDeleteInProgress:
		return r, notFound(uri)
	case uri == "":
		c.logger.V(1).Info("skipping resource without a location", "status", status.String())
		return r, nil
	case !NeedsFetch(status, opts):
		return r, nil
	}

	_, err, _ := c.fetches.Do(uri, func() (any, error) {
		return nil, c.fetch(ctx, r, uri, opts)
	})
	if err != nil {
		return r, err
	}

	if opts.HydrateItems && r.IsCollection() {
		if err := c.SynchroniseItems(ctx, r, opts); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (c *Client) fetch(ctx context.Context, r *Resource, uri string, opts LoadOptions) error {
	request := transport.Request{Method: http.MethodGet, URI: uri, Accept: resource.MediaTypeJSON}
	state := r.State()
	revalidate := state.Status == StatusHydrated && state.ETag() != ""
	if revalidate {
		request.Header = http.Header{"If-None-Match": []string{state.ETag()}}
	}

	response, err := c.send(ctx, "fetch", request)
	if err != nil {
		r.setStatus(StatusUnknown)
		if cancelled(ctx, err) {
			return cancelledError(uri, err)
		}
		c.logger.Error(err, "fetch failed", "uri", uri)
		return nil
	}

	switch {
	case response.StatusCode == http.StatusNotModified && revalidate:
		r.touch(response.Header, c.now())
		return nil
	case response.Success():
		representation, _, decodeErr := response.Representation()
		if decodeErr != nil {
			r.setStatus(StatusUnknown)
			c.logger.Error(decodeErr, "fetch returned an undecodable body", "uri", uri)
			return nil
		}
		r.hydrate(representation, response.Header, c.now())
		if representation.IsCollection() {
			c.applyFeed(r, representation, opts)
		}
		return nil
	case response.StatusCode == http.StatusForbidden:
		r.setStatus(StatusForbidden)
		return nil
	case response.StatusCode == http.StatusNotFound:
		r.setStatus(StatusDeleted)
		return notFound(uri)
	default:
		r.setStatus(StatusUnknown)
		c.logger.Info("fetch rejected", "uri", uri, "status", response.StatusCode, "body", summarizeBody(response.Body))
		return nil
	}
}

// send dispatches request through the scheduler.
func (c *Client) send(ctx context.Context, operation string, request transport.Request) (*transport.Response, error) {
	if c.transport == nil {
		return nil, faults.NewTypedError(faults.InternalError, "client has no transport", nil)
	}

	job := scheduler.Job{Operation: operation, Target: request.URI}
	response, err := scheduler.Submit(ctx, c.scheduler, job, func(ctx context.Context) (*transport.Response, error) {
		debugctx.Printf(ctx, "%s %s", request.Method, request.URI)
		return c.transport.Do(ctx, request)
	})
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, faults.NewTypedError(faults.TransportError, "transport returned no response for "+request.URI, nil)
	}
	debugctx.Printf(ctx, "%s %s -> %d", request.Method, request.URI, response.StatusCode)
	return response, nil
}
