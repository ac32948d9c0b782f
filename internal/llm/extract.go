package llm

import (
	"fmt"
	"reflect"
	"strings"
)

// textFields is the ordered list of field names ExtractText probes on
// structured values.
var textFields = []string{"content", "text", "message", "output", "response"}

// ExtractText normalizes a provider response value to plain text.
//
// Resolution order: a string is returned as-is; for maps and structs the
// fields content, text, message, output, response are probed in that
// order (case-insensitive for struct fields), recursing into the first
// one present; anything else falls back to fmt.Sprint. A nil value
// yields the empty string.
func ExtractText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		for _, field := range textFields {
			if inner, ok := val[field]; ok {
				return ExtractText(inner)
			}
		}
		return fmt.Sprint(val)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		rt := rv.Type()
		for _, field := range textFields {
			for i := 0; i < rt.NumField(); i++ {
				f := rt.Field(i)
				if !f.IsExported() || !strings.EqualFold(f.Name, field) {
					continue
				}
				return ExtractText(rv.Field(i).Interface())
			}
		}
	}

	return fmt.Sprint(v)
}
