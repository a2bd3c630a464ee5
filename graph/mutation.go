package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
	"github.com/crmarques/hypersync/transport"
)

type CreateRequest struct {
	// Target receives the POST; empty targets the collection itself.
	Target  string
	Payload resource.Representation
	// SkipHydrate leaves the created child locationOnly instead of fetching it.
	SkipHydrate bool
}

type UpdateRequest struct {
	// Target receives the PUT; empty targets the resource itself.
	Target  string
	Payload resource.Representation
}

// Create posts payload and attaches the created resource to collection. It
// returns nil without error when the server refused the create with 403,
// 404 or 405.
func (c *Client) Create(ctx context.Context, collection *Resource, req CreateRequest) (*Resource, error) {
	if collection == nil {
		return nil, faults.Contract("cannot create into an untracked collection")
	}

	target := strings.TrimSpace(req.Target)
	if target == "" {
		target = collection.URI()
	}
	if target == "" {
		return nil, faults.MissingInterface(resource.RelCreateForm)
	}

	request, err := transport.NewJSONRequest(http.MethodPost, target, req.Payload.ToMap())
	if err != nil {
		return nil, err
	}
	response, err := c.send(ctx, "create", request)
	if err != nil {
		if cancelled(ctx, err) {
			return nil, cancelledError(target, err)
		}
		c.logger.Error(err, "create failed", "target", target)
		return nil, nil
	}

	switch {
	case response.Success():
	case response.StatusCode == http.StatusForbidden:
		collection.setStatus(StatusForbidden)
		return nil, nil
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusMethodNotAllowed:
		c.logger.V(1).Info("create not supported", "target", target, "status", response.StatusCode)
		return nil, nil
	default:
		return nil, classifyStatusError("create", target, response.StatusCode, response.Body)
	}

	representation, hasBody, decodeErr := response.Representation()
	if decodeErr != nil {
		c.logger.Error(decodeErr, "create returned an undecodable body", "target", target)
		hasBody = false
	}

	location := response.Location(target)
	if location == "" && hasBody {
		location = resource.ResolveReference(target, representation.URI())
	}
	if location == "" {
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("create %s succeeded without a Location header or self link", target),
			nil,
		)
	}

	child := c.network.Track(location)
	child.setStatus(StatusLocationOnly)
	if err := collection.AddItem(child); err != nil {
		return nil, err
	}

	switch {
	case response.Header.Get("Location") == "" && hasBody:
		child.hydrate(representation, response.Header, c.now())
		return child, nil
	case req.SkipHydrate:
		return child, nil
	}
	return c.Synchronise(ctx, child, LoadOptions{})
}

// Update replaces r with payload. A 404 or 405 leaves r as it was.
func (c *Client) Update(ctx context.Context, r *Resource, req UpdateRequest) (*Resource, error) {
	if r == nil {
		return nil, faults.Contract("cannot update an untracked resource")
	}
	switch status := r.Status(); status {
	case StatusVirtual:
		return r, nil
	case StatusDeleted, StatusDeleteInProgress:
		return r, notFound(r.URI())
	}

	target := strings.TrimSpace(req.Target)
	if target == "" {
		target = r.URI()
	}
	if target == "" {
		return nil, faults.MissingInterface(resource.RelSelf)
	}

	request, err := transport.NewJSONRequest(http.MethodPut, target, req.Payload.ToMap())
	if err != nil {
		return r, err
	}
	response, err := c.send(ctx, "update", request)
	if err != nil {
		if cancelled(ctx, err) {
			return r, cancelledError(target, err)
		}
		r.setStatus(StatusUnknown)
		c.logger.Error(err, "update failed", "target", target)
		return r, nil
	}

	switch {
	case response.Success():
		representation, hasBody, decodeErr := response.Representation()
		if decodeErr != nil || !hasBody {
			representation = req.Payload
		}
		r.hydrate(representation, response.Header, c.now())
		return r, nil
	case response.StatusCode == http.StatusForbidden:
		r.setStatus(StatusForbidden)
		return r, nil
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusMethodNotAllowed:
		c.logger.V(1).Info("update not supported", "target", target, "status", response.StatusCode)
		return r, nil
	default:
		return r, classifyStatusError("update", target, response.StatusCode, response.Body)
	}
}

// Delete removes r. Deleting a resource that is already deleted, being
// deleted, forbidden or virtual sends nothing.
func (c *Client) Delete(ctx context.Context, r *Resource) error {
	if r == nil {
		return faults.Contract("cannot delete an untracked resource")
	}
	if !r.beginDelete() {
		return nil
	}

	uri := r.URI()
	if uri == "" {
		r.revertStatus()
		return nil
	}

	response, err := c.send(ctx, "delete", transport.Request{
		Method: http.MethodDelete,
		URI:    uri,
		Accept: resource.MediaTypeJSON,
	})
	if err != nil {
		r.revertStatus()
		if cancelled(ctx, err) {
			return cancelledError(uri, err)
		}
		c.logger.Error(err, "delete failed", "uri", uri)
		return nil
	}

	switch {
	case response.Success():
		r.mu.Lock()
		r.setStatusLocked(StatusDeleted)
		r.state.Retrieved = c.now()
		if response.Header != nil {
			r.state.Header = response.Header.Clone()
		}
		r.mu.Unlock()
		return nil
	case response.StatusCode == http.StatusForbidden:
		r.setStatus(StatusForbidden)
		return nil
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusMethodNotAllowed:
		r.revertStatus()
		return nil
	default:
		r.revertStatus()
		return classifyStatusError("delete", uri, response.StatusCode, response.Body)
	}
}

// DeleteFromCollection deletes item and, once it is gone, removes it from
// collection and marks the collection stale.
func (c *Client) DeleteFromCollection(ctx context.Context, collection *Resource, item *Resource) error {
	if collection == nil {
		return faults.Contract("cannot delete from an untracked collection")
	}
	if err := c.Delete(ctx, item); err != nil {
		return err
	}
	if item.Status() == StatusDeleted {
		collection.RemoveItem(item)
		collection.MarkStale()
	}
	return nil
}

// SendURIList sends uris as a text/uri-list body to list. It is used for
// bulk membership POST, PATCH and DELETE. list is marked stale on success.
func (c *Client) SendURIList(ctx context.Context, list *Resource, method string, uris []string) error {
	if list == nil {
		return faults.Contract("cannot update an untracked uri-list")
	}
	target := list.URI()
	if target == "" {
		return faults.MissingInterface(resource.RelSelf)
	}

	operation := "urilist-" + strings.ToLower(method)
	response, err := c.send(ctx, operation, transport.NewURIListRequest(method, target, uris))
	if err != nil {
		if cancelled(ctx, err) {
			return cancelledError(target, err)
		}
		list.setStatus(StatusUnknown)
		c.logger.Error(err, "uri-list request failed", "target", target, "method", method)
		return nil
	}

	switch {
	case response.Success():
		list.MarkStale()
		return nil
	case response.StatusCode == http.StatusForbidden:
		list.setStatus(StatusForbidden)
		return nil
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusMethodNotAllowed:
		return nil
	default:
		return classifyStatusError(operation, target, response.StatusCode, response.Body)
	}
}

// FetchURIList returns the URIs listed by list, requesting text/uri-list.
// Servers answering JSON are read as a collection feed instead.
func (c *Client) FetchURIList(ctx context.Context, list *Resource) ([]string, error) {
	if list == nil {
		return nil, faults.Contract("cannot read an untracked uri-list")
	}
	target := list.URI()
	if target == "" {
		return nil, faults.MissingInterface(resource.RelSelf)
	}

	response, err := c.send(ctx, "urilist-get", transport.Request{
		Method: http.MethodGet,
		URI:    target,
		Accept: resource.MediaTypeURIList + ", " + resource.MediaTypeJSON + ";q=0.5",
	})
	if err != nil {
		list.setStatus(StatusUnknown)
		if cancelled(ctx, err) {
			return nil, cancelledError(target, err)
		}
		c.logger.Error(err, "uri-list fetch failed", "target", target)
		return nil, nil
	}

	switch {
	case response.Success():
	case response.StatusCode == http.StatusForbidden:
		list.setStatus(StatusForbidden)
		return nil, nil
	case response.StatusCode == http.StatusNotFound:
		list.setStatus(StatusDeleted)
		return nil, notFound(target)
	default:
		list.setStatus(StatusUnknown)
		c.logger.Info("uri-list fetch rejected", "target", target, "status", response.StatusCode)
		return nil, nil
	}

	contentType := response.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(contentType), resource.MediaTypeURIList) {
		list.touch(response.Header, c.now())
		uris := resource.DecodeURIList(response.Body)
		for idx, uri := range uris {
			uris[idx] = resource.ResolveReference(target, uri)
		}
		return uris, nil
	}

	representation, _, decodeErr := response.Representation()
	if decodeErr != nil {
		list.setStatus(StatusUnknown)
		c.logger.Error(decodeErr, "uri-list fetch returned an undecodable body", "target", target)
		return nil, nil
	}
	list.hydrate(representation, response.Header, c.now())
	c.applyFeed(list, representation, LoadOptions{})
	uris := make([]string, 0, len(representation.Items))
	for _, item := range list.Items() {
		uris = append(uris, item.URI())
	}
	return uris, nil
}
