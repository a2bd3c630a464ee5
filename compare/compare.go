// Package compare holds the predicates that decide whether a server item and
// a document item denote the same logical resource.
package compare

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/resource"
)

// Comparator reports whether left (server side) and right (document side)
// are the same resource.
type Comparator func(left resource.Representation, right resource.Representation) bool

// Default matches on URI, then name, then title.
func Default() []Comparator {
	return []Comparator{ByURI, ByName, ByTitle}
}

// ByURI matches on the self-or-canonical link.
func ByURI(left resource.Representation, right resource.Representation) bool {
	leftURI := strings.TrimSpace(left.URI())
	return leftURI != "" && leftURI == strings.TrimSpace(right.URI())
}

func ByName(left resource.Representation, right resource.Representation) bool {
	return sameString(left, right, "name")
}

func ByTitle(left resource.Representation, right resource.Representation) bool {
	return sameString(left, right, "title")
}

func sameString(left resource.Representation, right resource.Representation, attribute string) bool {
	leftValue, ok := left.StringAttribute(attribute)
	if !ok {
		return false
	}
	rightValue, ok := right.StringAttribute(attribute)
	return ok && leftValue == rightValue
}

// ByAttribute matches when both sides carry an equal, non-null value for
// attribute. Numbers compare by value regardless of how they were decoded.
func ByAttribute(attribute string) Comparator {
	return func(left resource.Representation, right resource.Representation) bool {
		leftValue, ok := left.Attribute(attribute)
		if !ok || leftValue == nil {
			return false
		}
		rightValue, ok := right.Attribute(attribute)
		if !ok || rightValue == nil {
			return false
		}
		return resource.Equal(leftValue, rightValue)
	}
}

// ByLinkRelation matches on the href of the first link with rel.
func ByLinkRelation(rel string) Comparator {
	matcher := resource.Rel(rel)
	return func(left resource.Representation, right resource.Representation) bool {
		leftHref := left.Links.Href(matcher, "")
		return leftHref != "" && leftHref == right.Links.Href(matcher, "")
	}
}

var jqCodeCache sync.Map

// ByJQ evaluates expression against both representations and matches when
// both produce the same non-null result.
func ByJQ(expression string) (Comparator, error) {
	code, err := compileJQ(expression)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "invalid comparator jq expression", err)
	}
	return func(left resource.Representation, right resource.Representation) bool {
		leftValue, err := runJQ(code, left)
		if err != nil || leftValue == nil {
			return false
		}
		rightValue, err := runJQ(code, right)
		if err != nil || rightValue == nil {
			return false
		}
		return resource.Equal(leftValue, rightValue)
	}, nil
}

func compileJQ(expression string) (*gojq.Code, error) {
	expression = strings.TrimSpace(expression)
	if cached, ok := jqCodeCache.Load(expression); ok {
		return cached.(*gojq.Code), nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}
	actual, _ := jqCodeCache.LoadOrStore(expression, code)
	return actual.(*gojq.Code), nil
}

func runJQ(code *gojq.Code, representation resource.Representation) (any, error) {
	input, err := jqInput(representation)
	if err != nil {
		return nil, err
	}

	iterator := code.Run(input)
	var results []any
	for {
		value, ok := iterator.Next()
		if !ok {
			break
		}
		if valueErr, isErr := value.(error); isErr {
			return nil, valueErr
		}
		results = append(results, value)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Query evaluates a jq expression against representation. Several results
// come back as a slice.
func Query(expression string, representation resource.Representation) (any, error) {
	code, err := compileJQ(expression)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "invalid jq expression", err)
	}
	value, err := runJQ(code, representation)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "jq evaluation failed", err)
	}
	return value, nil
}

// jqInput converts a representation to the plain JSON types gojq accepts.
func jqInput(representation resource.Representation) (any, error) {
	encoded, err := json.Marshal(representation)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// Parse builds a comparator from its configuration form: "uri", "name",
// "title", "attribute:<name>", "link:<rel>" or "jq:<expression>".
func Parse(value string) (Comparator, error) {
	trimmed := strings.TrimSpace(value)
	kind, argument, hasArgument := strings.Cut(trimmed, ":")
	kind = strings.ToLower(strings.TrimSpace(kind))
	argument = strings.TrimSpace(argument)

	switch kind {
	case "uri", "self":
		return ByURI, nil
	case "name":
		return ByName, nil
	case "title":
		return ByTitle, nil
	case "attribute":
		if !hasArgument || argument == "" {
			return nil, faults.NewTypedError(faults.ValidationError, "attribute comparator requires an attribute name", nil)
		}
		return ByAttribute(argument), nil
	case "link":
		if !hasArgument || argument == "" {
			return nil, faults.NewTypedError(faults.ValidationError, "link comparator requires a relation", nil)
		}
		return ByLinkRelation(argument), nil
	case "jq":
		if !hasArgument || argument == "" {
			return nil, faults.NewTypedError(faults.ValidationError, "jq comparator requires an expression", nil)
		}
		return ByJQ(argument)
	default:
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("unsupported comparator %q", trimmed), nil)
	}
}

// ParseAll parses values in order. An empty list yields Default.
func ParseAll(values []string) ([]Comparator, error) {
	if len(values) == 0 {
		return Default(), nil
	}
	comparators := make([]Comparator, 0, len(values))
	for _, value := range values {
		comparator, err := Parse(value)
		if err != nil {
			return nil, err
		}
		comparators = append(comparators, comparator)
	}
	return comparators, nil
}
