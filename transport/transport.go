// Package transport defines the contract between the synchronisation engine
// and whatever carries requests to the API. The engine never talks to the
// network directly; every call goes through a Transport handed to the
// scheduler.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

type Request struct {
	Method      string
	URI         string
	Accept      string
	ContentType string
	Body        []byte
	Header      http.Header
}

// Response carries the outcome of any request that reached the server,
// including 4xx and 5xx answers. Transport failures are reported as errors
// instead.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Transport interface {
	Do(ctx context.Context, request Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, request Request) (*Response, error)

func (f Func) Do(ctx context.Context, request Request) (*Response, error) {
	return f(ctx, request)
}

func (r *Response) Success() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Location returns the Location header resolved against requestURI.
func (r *Response) Location(requestURI string) string {
	if r == nil || r.Header == nil {
		return ""
	}
	location := strings.TrimSpace(r.Header.Get("Location"))
	if location == "" {
		return ""
	}
	return resource.ResolveReference(requestURI, location)
}

// Representation decodes a JSON body. An empty body decodes to an empty
// representation and false.
func (r *Response) Representation() (resource.Representation, bool, error) {
	if r == nil || len(strings.TrimSpace(string(r.Body))) == 0 {
		return resource.Representation{}, false, nil
	}
	var representation resource.Representation
	if err := json.Unmarshal(r.Body, &representation); err != nil {
		return resource.Representation{}, false, faults.NewTypedError(
			faults.ValidationError,
			"response body is not a valid JSON representation",
			err,
		)
	}
	return representation, true, nil
}

// NewJSONRequest encodes body as application/json.
func NewJSONRequest(method string, uri string, body any) (Request, error) {
	request := Request{
		Method: method,
		URI:    uri,
		Accept: resource.MediaTypeJSON,
	}
	if body == nil {
		return request, nil
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return Request{}, faults.NewTypedError(faults.ValidationError, "failed to encode request body", err)
	}
	request.Body = encoded
	request.ContentType = resource.MediaTypeJSON
	return request, nil
}

// NewURIListRequest builds a text/uri-list request.
func NewURIListRequest(method string, uri string, uris []string) Request {
	return Request{
		Method:      method,
		URI:         uri,
		Accept:      resource.MediaTypeJSON,
		ContentType: resource.MediaTypeURIList,
		Body:        resource.EncodeURIList(uris),
	}
}

// Get builds a GET request for the first link of links matching matcher.
// A missing link is a contract error.
func Get(links resource.Links, matcher resource.LinkMatcher, mediaType string) (Request, error) {
	link, ok := links.Find(matcher, mediaType)
	if !ok || strings.TrimSpace(link.Href) == "" {
		rel := ""
		if matcher != nil {
			rel = matcher.String()
		}
		return Request{}, faults.MissingInterface(rel)
	}
	accept := mediaType
	if accept == "" {
		accept = resource.MediaTypeJSON
	}
	return Request{Method: http.MethodGet, URI: link.Href, Accept: accept}, nil
}
