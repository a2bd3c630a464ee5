package resource

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	linksKey = "links"
	itemsKey = "items"
)

// Representation is the JSON document of a hypermedia resource: a links
// array, arbitrary attributes and, for collections and forms, an items
// array. A non-nil Items slice marks a collection even when empty.
type Representation struct {
	Links      Links
	Attributes map[string]Value
	Items      []Representation
}

func (r Representation) URI() string {
	return r.Links.URI()
}

func (r Representation) IsCollection() bool {
	return r.Items != nil
}

func (r Representation) Attribute(name string) (Value, bool) {
	if r.Attributes == nil {
		return nil, false
	}
	value, ok := r.Attributes[name]
	return value, ok
}

// StringAttribute returns a trimmed string attribute.
func (r Representation) StringAttribute(name string) (string, bool) {
	value, ok := r.Attribute(name)
	if !ok {
		return "", false
	}
	text, ok := value.(string)
	if !ok {
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (r *Representation) SetAttribute(name string, value Value) {
	if r.Attributes == nil {
		r.Attributes = map[string]Value{}
	}
	r.Attributes[name] = value
}

func (r *Representation) DeleteAttribute(name string) {
	delete(r.Attributes, name)
}

// Child returns the nested representation stored under name, either as an
// embedded object attribute or as an items-only array.
func (r Representation) Child(name string) (Representation, bool) {
	value, ok := r.Attribute(name)
	if !ok || value == nil {
		return Representation{}, false
	}

	switch typed := value.(type) {
	case Representation:
		return typed, true
	case *Representation:
		if typed == nil {
			return Representation{}, false
		}
		return *typed, true
	case map[string]any:
		return FromMap(typed), true
	case []any:
		return Representation{Items: representationsFromSlice(typed)}, true
	default:
		return Representation{}, false
	}
}

// Clone deep-copies links, attributes and items.
func (r Representation) Clone() Representation {
	cloned := Representation{
		Links:      r.Links.Clone(),
		Attributes: cloneValueMap(r.Attributes),
	}
	if r.Items != nil {
		cloned.Items = make([]Representation, len(r.Items))
		for idx, item := range r.Items {
			cloned.Items[idx] = item.Clone()
		}
	}
	return cloned
}

// AttributeNames returns the sorted attribute keys.
func (r Representation) AttributeNames() []string {
	names := make([]string, 0, len(r.Attributes))
	for name := range r.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToMap renders the representation in its generic JSON object form.
func (r Representation) ToMap() map[string]any {
	out := make(map[string]any, len(r.Attributes)+2)
	for key, value := range r.Attributes {
		out[key] = value
	}
	if len(r.Links) > 0 {
		links := make([]any, len(r.Links))
		for idx, link := range r.Links {
			entry := map[string]any{"rel": link.Rel, "href": link.Href}
			if link.Type != "" {
				entry["type"] = link.Type
			}
			if link.Title != "" {
				entry["title"] = link.Title
			}
			links[idx] = entry
		}
		out[linksKey] = links
	}
	if r.Items != nil {
		items := make([]any, len(r.Items))
		for idx, item := range r.Items {
			items[idx] = item.ToMap()
		}
		out[itemsKey] = items
	}
	return out
}

// FromMap builds a representation from a decoded JSON or YAML object.
func FromMap(values map[string]any) Representation {
	out := Representation{}
	for key, value := range values {
		switch key {
		case linksKey:
			out.Links = linksFromValue(value)
		case itemsKey:
			if items, ok := value.([]any); ok {
				out.Items = representationsFromSlice(items)
				continue
			}
			if items, ok := value.([]map[string]any); ok {
				out.Items = make([]Representation, len(items))
				for idx, item := range items {
					out.Items[idx] = FromMap(item)
				}
				continue
			}
			out.SetAttribute(key, value)
		default:
			out.SetAttribute(key, value)
		}
	}
	return out
}

func (r Representation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

func (r *Representation) UnmarshalJSON(data []byte) error {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*r = FromMap(values)
	return nil
}

// MarshalYAML renders the generic object form so YAML output matches JSON.
func (r Representation) MarshalYAML() (any, error) {
	return r.ToMap(), nil
}

func representationsFromSlice(values []any) []Representation {
	items := make([]Representation, 0, len(values))
	for _, value := range values {
		switch typed := value.(type) {
		case map[string]any:
			items = append(items, FromMap(typed))
		case Representation:
			items = append(items, typed)
		case string:
			// bare URIs are shorthand for a link-only item
			items = append(items, Representation{Links: Links{{Rel: RelSelf, Href: typed}}})
		}
	}
	return items
}

func linksFromValue(value any) Links {
	switch typed := value.(type) {
	case Links:
		return typed.Clone()
	case []Link:
		return Links(typed).Clone()
	case []map[string]any:
		links := make(Links, 0, len(typed))
		for _, object := range typed {
			links = append(links, linkFromMap(object))
		}
		return links
	case []any:
		links := make(Links, 0, len(typed))
		for _, entry := range typed {
			object, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			links = append(links, linkFromMap(object))
		}
		return links
	default:
		return nil
	}
}

func linkFromMap(object map[string]any) Link {
	return Link{
		Rel:   stringValue(object["rel"]),
		Href:  stringValue(object["href"]),
		Type:  stringValue(object["type"]),
		Title: stringValue(object["title"]),
	}
}

func stringValue(value any) string {
	text, _ := value.(string)
	return text
}
