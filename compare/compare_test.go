package compare

import (
	"encoding/json"
	"testing"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

func item(self string, attributes map[string]resource.Value) resource.Representation {
	representation := resource.Representation{Attributes: attributes}
	if self != "" {
		representation.Links = resource.Links{{Rel: resource.RelSelf, Href: self}}
	}
	return representation
}

func TestBuiltInComparators(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		comparator Comparator
		left       resource.Representation
		right      resource.Representation
		want       bool
	}{
		{name: "uri_match", comparator: ByURI, left: item("/t/1", nil), right: item("/t/1", nil), want: true},
		{name: "uri_missing", comparator: ByURI, left: item("", nil), right: item("", nil), want: false},
		{
			name:       "canonical_counts_as_uri",
			comparator: ByURI,
			left:       resource.Representation{Links: resource.Links{{Rel: resource.RelCanonical, Href: "/t/1"}}},
			right:      item("/t/1", nil),
			want:       true,
		},
		{name: "name_match", comparator: ByName, left: item("", map[string]resource.Value{"name": "A"}), right: item("", map[string]resource.Value{"name": " A "}), want: true},
		{name: "name_blank", comparator: ByName, left: item("", map[string]resource.Value{"name": ""}), right: item("", map[string]resource.Value{"name": ""}), want: false},
		{name: "title_mismatch", comparator: ByTitle, left: item("", map[string]resource.Value{"title": "A"}), right: item("", map[string]resource.Value{"title": "B"}), want: false},
		{
			name:       "attribute_numbers",
			comparator: ByAttribute("code"),
			left:       item("", map[string]resource.Value{"code": json.Number("7")}),
			right:      item("", map[string]resource.Value{"code": 7}),
			want:       true,
		},
		{
			name:       "attribute_null",
			comparator: ByAttribute("code"),
			left:       item("", map[string]resource.Value{"code": nil}),
			right:      item("", map[string]resource.Value{"code": nil}),
			want:       false,
		},
		{
			name:       "link_relation",
			comparator: ByLinkRelation("owner"),
			left:       resource.Representation{Links: resource.Links{{Rel: "owner", Href: "/users/1"}}},
			right:      resource.Representation{Links: resource.Links{{Rel: "owner", Href: "/users/1"}}},
			want:       true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.comparator(tc.left, tc.right); got != tc.want {
				t.Fatalf("expected %t, got %t", tc.want, got)
			}
		})
	}
}

func TestByJQ(t *testing.T) {
	t.Parallel()

	comparator, err := ByJQ(".code | ascii_downcase")
	if err != nil {
		t.Fatalf("ByJQ returned error: %v", err)
	}
	if !comparator(item("", map[string]resource.Value{"code": "ABC"}), item("", map[string]resource.Value{"code": "abc"})) {
		t.Fatal("expected jq results to match")
	}
	if comparator(item("", nil), item("", nil)) {
		t.Fatal("expected null jq results not to match")
	}

	if _, err := ByJQ(".code |"); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error for invalid jq, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	collection := resource.Representation{
		Items: []resource.Representation{
			item("/t/1", map[string]resource.Value{"name": "a"}),
			item("/t/2", map[string]resource.Value{"name": "b"}),
		},
	}

	got, err := Query(".items[].name", collection)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	values, ok := got.([]any)
	if !ok || len(values) != 2 || values[0] != "a" || values[1] != "b" {
		t.Fatalf("unexpected query result %#v", got)
	}

	single, err := Query(".items | length", collection)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if single != 2 {
		t.Fatalf("expected length 2, got %#v", single)
	}

	if _, err := Query(".name | error", item("", map[string]resource.Value{"name": "boom"})); !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error for failing jq, got %v", err)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	left := item("/t/1", map[string]resource.Value{"name": "A", "code": "x"})
	right := item("/t/1", map[string]resource.Value{"name": "A", "code": "x"})

	for _, value := range []string{"uri", "self", "Name", "attribute:code", "jq:.code"} {
		comparator, err := Parse(value)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", value, err)
		}
		if !comparator(left, right) {
			t.Fatalf("expected %q comparator to match", value)
		}
	}

	for _, value := range []string{"attribute:", "link", "jq:", "fuzzy"} {
		if _, err := Parse(value); !faults.IsCategory(err, faults.ValidationError) {
			t.Fatalf("expected Parse(%q) to fail validation, got %v", value, err)
		}
	}

	comparators, err := ParseAll(nil)
	if err != nil || len(comparators) != len(Default()) {
		t.Fatalf("expected default comparators, got %d err=%v", len(comparators), err)
	}
}
