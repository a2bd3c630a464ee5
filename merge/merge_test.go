package merge

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/crmarques/hypersync/resolver"
	"github.com/crmarques/hypersync/resource"
)

func testForm() resource.Form {
	return resource.Form{Items: []resource.FormItem{
		{Type: resource.FieldText, Name: "name"},
		{Type: resource.FieldDate, Name: "dueDate"},
		{Type: resource.FieldSelect, Name: "assignedTo"},
		{Type: resource.FieldSelect, Name: "tags", Multiple: true},
		{Type: resource.FieldSelect, Name: "priority", Items: []resource.FormItem{{Name: "low"}, {Name: "high"}}},
		{Type: resource.FieldGroup, Name: "address", Items: []resource.FormItem{{Type: resource.FieldText, Name: "city"}}},
		{Type: resource.FieldUnknown, RawType: "hologram", Name: "avatar"},
	}}
}

func TestCreateMergeProjectsDeclaredFields(t *testing.T) {
	t.Parallel()

	table := resolver.NewTable()
	table.Add("urn:doc:user", "/users/7")
	table.Add("urn:doc:tag", "/tags/1")

	document := resource.Representation{Attributes: map[string]resource.Value{
		"name":       "Task",
		"dueDate":    "2026-01-02",
		"assignedTo": "urn:doc:user",
		"tags":       []any{"urn:doc:tag", "/tags/2"},
		"priority":   "urgent",
		"address":    map[string]any{"city": "Lisbon", "zip": "1000"},
		"avatar":     "x.png",
		"undeclared": true,
	}}

	merged, err := CreateMerge(context.Background(), document, testForm(), Options{Resolver: table})
	if err != nil {
		t.Fatalf("CreateMerge returned error: %v", err)
	}

	want := map[string]resource.Value{
		"name":       "Task",
		"dueDate":    "2026-01-02",
		"assignedTo": "/users/7",
		"tags":       []any{"/tags/1", "/tags/2"},
		"priority":   "urgent",
		"address":    map[string]any{"city": "Lisbon"},
	}
	if !reflect.DeepEqual(merged.Attributes, want) {
		t.Fatalf("unexpected projection:\n got %#v\nwant %#v", merged.Attributes, want)
	}
}

func TestCreateMergeFoldsLinkRelations(t *testing.T) {
	t.Parallel()

	document := resource.Representation{Links: resource.Links{
		{Rel: "assigned-to", Href: "/users/7"},
		{Rel: "tags", Href: "/tags/1"},
		{Rel: "tags", Href: "/tags/2"},
	}}

	merged, err := CreateMerge(context.Background(), document, testForm(), Options{})
	if err != nil {
		t.Fatalf("CreateMerge returned error: %v", err)
	}
	if got := merged.Attributes["assignedTo"]; got != "/users/7" {
		t.Fatalf("expected folded select link, got %#v", got)
	}
	if got := merged.Attributes["tags"]; !reflect.DeepEqual(got, []any{"/tags/1", "/tags/2"}) {
		t.Fatalf("expected folded multiple select links, got %#v", got)
	}
}

func TestPooledResolver(t *testing.T) {
	t.Parallel()

	pooled := func(_ context.Context, field string, value resource.Value) (resource.Value, error) {
		if field != "assignedTo" {
			t.Errorf("unexpected pooled field %q", field)
		}
		return "/users/" + value.(string), nil
	}
	document := resource.Representation{Attributes: map[string]resource.Value{"assignedTo": "alice"}}

	merged, err := CreateMerge(context.Background(), document, testForm(), Options{PooledResolver: pooled})
	if err != nil {
		t.Fatalf("CreateMerge returned error: %v", err)
	}
	if got := merged.Attributes["assignedTo"]; got != "/users/alice" {
		t.Fatalf("expected pooled resolution, got %#v", got)
	}

	failing := func(context.Context, string, resource.Value) (resource.Value, error) {
		return nil, errors.New("pool unavailable")
	}
	if _, err := CreateMerge(context.Background(), document, testForm(), Options{PooledResolver: failing}); err == nil {
		t.Fatal("expected pooled resolver failure to propagate")
	}
}

func TestEditMergeSelfIsNoOp(t *testing.T) {
	t.Parallel()

	original := resource.Representation{
		Links: resource.Links{
			{Rel: resource.RelSelf, Href: "/t/1"},
			{Rel: "assigned-to", Href: "/users/7"},
		},
		Attributes: map[string]resource.Value{
			"name":    "Task",
			"address": map[string]any{"city": "Lisbon", "zip": "1000"},
			"extra":   float64(3),
		},
	}

	_, changed, err := EditMerge(context.Background(), original, original, testForm(), Options{UndefinedWhenNoUpdateRequired: true})
	if err != nil {
		t.Fatalf("EditMerge returned error: %v", err)
	}
	if changed {
		t.Fatal("expected self merge to require no update")
	}

	_, changed, err = EditMerge(context.Background(), original, original, testForm(), Options{})
	if err != nil || !changed {
		t.Fatalf("expected merge to report a change when no-op detection is off, changed=%t err=%v", changed, err)
	}
}

func TestEditMergeAppliesChanges(t *testing.T) {
	t.Parallel()

	original := resource.Representation{
		Links: resource.Links{
			{Rel: resource.RelSelf, Href: "/t/1"},
			{Rel: "assigned-to", Href: "/users/7"},
		},
		Attributes: map[string]resource.Value{"name": "A", "extra": "kept"},
	}
	document := resource.Representation{
		Links:      resource.Links{{Rel: resource.RelSelf, Href: "/t/1"}},
		Attributes: map[string]resource.Value{"name": "A*", "assignedTo": "/users/8"},
	}

	merged, changed, err := EditMerge(context.Background(), original, document, testForm(), Options{UndefinedWhenNoUpdateRequired: true})
	if err != nil {
		t.Fatalf("EditMerge returned error: %v", err)
	}
	if !changed {
		t.Fatal("expected a change")
	}
	if name, _ := merged.StringAttribute("name"); name != "A*" {
		t.Fatalf("expected name to be updated, got %q", name)
	}
	if extra, _ := merged.StringAttribute("extra"); extra != "kept" {
		t.Fatalf("expected undeclared attributes of the original to survive, got %q", extra)
	}
	if _, ok := merged.Attribute("assignedTo"); ok {
		t.Fatal("expected tracked field to stay out of the attributes")
	}
	if href := merged.Links.Href(resource.Rel("assigned-to"), ""); href != "/users/8" {
		t.Fatalf("expected tracked field to become a link mutation, got %q", href)
	}
	if merged.URI() != "/t/1" {
		t.Fatalf("expected self link to survive, got %q", merged.URI())
	}
}
