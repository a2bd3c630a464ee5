package transport

import (
	"net/http"
	"testing"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

func TestGetResolvesLink(t *testing.T) {
	t.Parallel()

	links := resource.Links{
		{Rel: "self", Href: "https://api.example.com/"},
		{Rel: "todos", Href: "https://api.example.com/todos/"},
	}

	request, err := Get(links, resource.Rel("todos"), "")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if request.Method != http.MethodGet || request.URI != "https://api.example.com/todos/" {
		t.Fatalf("unexpected request %#v", request)
	}
	if request.Accept != resource.MediaTypeJSON {
		t.Fatalf("expected default accept, got %q", request.Accept)
	}

	_, err = Get(links, resource.Rel("tags"), "")
	if !faults.IsCategory(err, faults.ContractError) {
		t.Fatalf("expected contract error, got %v", err)
	}
	if err.Error() != faults.MissingInterfaceMessage+" (tags)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestResponseHelpers(t *testing.T) {
	t.Parallel()

	response := &Response{
		StatusCode: http.StatusCreated,
		Header:     http.Header{"Location": []string{"42"}},
		Body:       []byte(`{"links":[{"rel":"self","href":"/t/42"}],"name":"x"}`),
	}
	if !response.Success() {
		t.Fatal("expected 201 to be success")
	}
	if got := response.Location("https://api.example.com/t/"); got != "https://api.example.com/t/42" {
		t.Fatalf("expected resolved location, got %q", got)
	}

	representation, ok, err := response.Representation()
	if err != nil || !ok {
		t.Fatalf("expected representation, got ok=%t err=%v", ok, err)
	}
	if representation.URI() != "/t/42" {
		t.Fatalf("unexpected URI %q", representation.URI())
	}

	empty := &Response{StatusCode: http.StatusNoContent}
	if _, ok, err := empty.Representation(); ok || err != nil {
		t.Fatalf("expected empty body to decode to nothing, got ok=%t err=%v", ok, err)
	}

	broken := &Response{StatusCode: http.StatusOK, Body: []byte("<html>")}
	if _, _, err := broken.Representation(); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewURIListRequest(t *testing.T) {
	t.Parallel()

	request := NewURIListRequest(http.MethodPost, "/t/1/tags", []string{"/tags/1", "/tags/2"})
	if request.ContentType != resource.MediaTypeURIList {
		t.Fatalf("unexpected content type %q", request.ContentType)
	}
	if string(request.Body) != "/tags/1\r\n/tags/2" {
		t.Fatalf("unexpected body %q", request.Body)
	}
}
