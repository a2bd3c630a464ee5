package resource

import (
	"fmt"
	"strings"
)

// FieldType is the closed vocabulary of form item types. Types a server
// declares outside the vocabulary parse to FieldUnknown and keep their raw
// spelling in FormItem.RawType.
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldText
	FieldPassword
	FieldEmail
	FieldDate
	FieldDateTime
	FieldSelect
	FieldCollection
	FieldGroup
	FieldCheck
)

var fieldTypeNames = map[FieldType]string{
	FieldText:       "text",
	FieldPassword:   "text/password",
	FieldEmail:      "text/email",
	FieldDate:       "date",
	FieldDateTime:   "date/time",
	FieldSelect:     "select",
	FieldCollection: "collection",
	FieldGroup:      "group",
	FieldCheck:      "check",
}

func ParseFieldType(raw string) FieldType {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "datetime", "date-time":
		return FieldDateTime
	}
	for fieldType, name := range fieldTypeNames {
		if name == normalized {
			return fieldType
		}
	}
	return FieldUnknown
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Scalar reports whether values of this type pass through verbatim.
func (t FieldType) Scalar() bool {
	switch t {
	case FieldText, FieldPassword, FieldEmail, FieldDate, FieldDateTime, FieldCheck:
		return true
	default:
		return false
	}
}

// FormItem declares one field the server accepts. For select fields Items is
// the enumeration of allowed values; for group fields it is the nested form.
type FormItem struct {
	Type        FieldType
	RawType     string
	Name        string
	Description string
	Multiple    bool
	Required    bool
	Value       Value
	Label       string
	Items       []FormItem
}

// EnumValues returns the allowed values of a select enumeration.
func (i FormItem) EnumValues() []Value {
	values := make([]Value, 0, len(i.Items))
	for _, option := range i.Items {
		if option.Value != nil {
			values = append(values, option.Value)
			continue
		}
		if option.Name != "" {
			values = append(values, option.Name)
		}
	}
	return values
}

func (i FormItem) String() string {
	return fmt.Sprintf("%s(%s)", i.Name, i.RawType)
}

// Form is a server-supplied description of the fields a target resource
// accepts and where to submit them.
type Form struct {
	Links Links
	Items []FormItem
}

// Submit returns the URI the form posts to, or "" if it carries no submit
// link.
func (f Form) Submit() string {
	return f.Links.Href(Rel(RelSubmit), "")
}

func (f Form) Item(name string) (FormItem, bool) {
	for _, item := range f.Items {
		if item.Name == name {
			return item, true
		}
	}
	return FormItem{}, false
}

func FormFromRepresentation(representation Representation) Form {
	return Form{
		Links: representation.Links.Clone(),
		Items: formItemsFromRepresentations(representation.Items),
	}
}

func formItemsFromRepresentations(items []Representation) []FormItem {
	out := make([]FormItem, 0, len(items))
	for _, item := range items {
		out = append(out, formItemFromRepresentation(item))
	}
	return out
}

func formItemFromRepresentation(item Representation) FormItem {
	rawType, _ := item.StringAttribute("type")
	name, _ := item.StringAttribute("name")
	description, _ := item.StringAttribute("description")
	label, _ := item.StringAttribute("label")
	value, _ := item.Attribute("value")

	formItem := FormItem{
		Type:        ParseFieldType(rawType),
		RawType:     rawType,
		Name:        name,
		Description: description,
		Multiple:    boolAttribute(item, "multiple"),
		Required:    boolAttribute(item, "required"),
		Value:       value,
		Label:       label,
	}
	if item.Items != nil {
		formItem.Items = formItemsFromRepresentations(item.Items)
	}
	return formItem
}

func boolAttribute(item Representation, name string) bool {
	value, ok := item.Attribute(name)
	if !ok {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}
