// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/crmarques/hypersync/transport"
)

type Call struct {
	Method      string
	URI         string
	ContentType string
	Header      http.Header
	Body        []byte
}

func (c Call) String() string {
	return c.Method + " " + c.URI
}

type Handler func(ctx context.Context, request transport.Request) (*transport.Response, error)

// Fake routes requests by method and URI and records every call. Unrouted
// requests answer 404.
type Fake struct {
	mu     sync.Mutex
	routes map[string]Handler
	calls  []Call
}

func New() *Fake {
	return &Fake{routes: map[string]Handler{}}
}

func (f *Fake) Handle(method string, uri string, handler Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+uri] = handler
}

// JSON answers method uri with status and body encoded as JSON.
func (f *Fake) JSON(method string, uri string, status int, body any) {
	f.Handle(method, uri, func(context.Context, transport.Request) (*transport.Response, error) {
		return JSONResponse(status, body), nil
	})
}

func (f *Fake) Status(method string, uri string, status int) {
	f.Handle(method, uri, func(context.Context, transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: status, Header: http.Header{}}, nil
	})
}

func (f *Fake) Do(ctx context.Context, request transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Method:      request.Method,
		URI:         request.URI,
		ContentType: request.ContentType,
		Header:      request.Header.Clone(),
		Body:        append([]byte(nil), request.Body...),
	})
	handler, ok := f.routes[request.Method+" "+request.URI]
	f.mu.Unlock()

	if !ok {
		return &transport.Response{StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
	}
	return handler(ctx, request)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Trace lists the calls as "METHOD uri" strings.
func (f *Fake) Trace() []string {
	calls := f.Calls()
	trace := make([]string, 0, len(calls))
	for _, call := range calls {
		trace = append(trace, call.String())
	}
	return trace
}

func (f *Fake) Count(method string, uri string) int {
	count := 0
	for _, call := range f.Calls() {
		if call.Method == method && call.URI == uri {
			count++
		}
	}
	return count
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// JSONResponse builds a response carrying body as application/json.
func JSONResponse(status int, body any) *transport.Response {
	response := &transport.Response{StatusCode: status, Header: http.Header{}}
	if body == nil {
		return response
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	response.Header.Set("Content-Type", "application/json")
	response.Body = encoded
	return response
}
