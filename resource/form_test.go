package resource

import "testing"

func TestFormFromRepresentation(t *testing.T) {
	t.Parallel()

	representation := FromMap(map[string]any{
		"links": []any{
			map[string]any{"rel": "self", "href": "/todos/form/create"},
			map[string]any{"rel": "submit", "href": "/todos/"},
		},
		"items": []any{
			map[string]any{"type": "text", "name": "name", "description": "Name", "required": true},
			map[string]any{"type": "date/time", "name": "due"},
			map[string]any{
				"type": "select",
				"name": "state",
				"items": []any{
					map[string]any{"value": "open", "label": "Open"},
					map[string]any{"name": "closed"},
				},
			},
			map[string]any{
				"type":     "group",
				"name":     "notes",
				"multiple": true,
				"items": []any{
					map[string]any{"type": "text", "name": "body"},
				},
			},
			map[string]any{"type": "signature", "name": "sig"},
		},
	})

	form := FormFromRepresentation(representation)
	if form.Submit() != "/todos/" {
		t.Fatalf("expected submit link, got %q", form.Submit())
	}
	if len(form.Items) != 5 {
		t.Fatalf("expected five items, got %d", len(form.Items))
	}

	name, ok := form.Item("name")
	if !ok || name.Type != FieldText || !name.Required {
		t.Fatalf("unexpected name item %#v", name)
	}

	due, _ := form.Item("due")
	if due.Type != FieldDateTime {
		t.Fatalf("expected date/time, got %v", due.Type)
	}

	state, _ := form.Item("state")
	values := state.EnumValues()
	if len(values) != 2 || values[0] != "open" || values[1] != "closed" {
		t.Fatalf("unexpected enum values %#v", values)
	}

	notes, _ := form.Item("notes")
	if notes.Type != FieldGroup || !notes.Multiple || len(notes.Items) != 1 {
		t.Fatalf("unexpected group item %#v", notes)
	}

	sig, _ := form.Item("sig")
	if sig.Type != FieldUnknown || sig.RawType != "signature" {
		t.Fatalf("expected unknown type with raw spelling, got %#v", sig)
	}
}

func TestParseFieldType(t *testing.T) {
	t.Parallel()

	cases := map[string]FieldType{
		"text":          FieldText,
		"text/password": FieldPassword,
		"text/email":    FieldEmail,
		"date":          FieldDate,
		"date/time":     FieldDateTime,
		"datetime":      FieldDateTime,
		"select":        FieldSelect,
		"collection":    FieldCollection,
		"group":         FieldGroup,
		"check":         FieldCheck,
		"Text":          FieldText,
		"number":        FieldUnknown,
	}
	for raw, expected := range cases {
		if got := ParseFieldType(raw); got != expected {
			t.Fatalf("ParseFieldType(%q) expected %v, got %v", raw, expected, got)
		}
	}
}

func TestFieldTypeScalar(t *testing.T) {
	t.Parallel()

	for _, fieldType := range []FieldType{FieldText, FieldPassword, FieldEmail, FieldDate, FieldDateTime, FieldCheck} {
		if !fieldType.Scalar() {
			t.Fatalf("expected %s to be scalar", fieldType)
		}
	}
	for _, fieldType := range []FieldType{FieldSelect, FieldGroup, FieldCollection, FieldUnknown} {
		if fieldType.Scalar() {
			t.Fatalf("expected %s not to be scalar", fieldType)
		}
	}
}
