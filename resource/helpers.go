package resource

import (
	"strings"
	"unicode"
)

func cloneValueMap(src map[string]Value) map[string]Value {
	if src == nil {
		return nil
	}
	dst := make(map[string]Value, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}
	return dst
}

func cloneValue(value Value) Value {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValueMap(typed)
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string{}, typed...)
	case Representation:
		return typed.Clone()
	default:
		return typed
	}
}

// DashCase converts an attribute name such as "assignedTo" into the link
// relation spelling "assigned-to".
func DashCase(name string) string {
	var builder strings.Builder
	runes := []rune(strings.TrimSpace(name))
	for idx, current := range runes {
		switch {
		case current == '_' || current == ' ':
			builder.WriteRune('-')
		case unicode.IsUpper(current):
			if idx > 0 && runes[idx-1] != '-' && runes[idx-1] != '_' && !unicode.IsUpper(runes[idx-1]) {
				builder.WriteRune('-')
			}
			builder.WriteRune(unicode.ToLower(current))
		default:
			builder.WriteRune(current)
		}
	}
	return builder.String()
}

// StringSlice converts a scalar or list attribute value into strings,
// skipping entries that are not strings.
func StringSlice(value Value) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return []string{typed}
	case []string:
		return append([]string{}, typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := item.(string); ok {
				out = append(out, text)
			}
		}
		return out
	default:
		return nil
	}
}
