package edge

import (
	"reflect"
	"slices"
)

// IsBlank reports whether v is nil, a nil pointer, or an empty string,
// slice or map. The number 0 is not blank.
func IsBlank(v any) bool {
	if v == nil || IsAbsent(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ToSlice wraps v as a slice: slices are returned as []any, nil becomes an
// empty slice and anything else a single element slice.
func ToSlice(v any) []any {
	switch s := v.(type) {
	case nil:
		return []any{}
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case Path:
		return []any(s)
	}
	return []any{v}
}

// UpdateObject copies the entries of newData into data, restricted to
// properties (default: the keys data already has).
func UpdateObject(data, newData map[string]any, properties ...string) map[string]any {
	if newData == nil {
		return data
	}
	if len(properties) == 0 {
		for k := range data {
			properties = append(properties, k)
		}
	}
	for k, v := range newData {
		if slices.Contains(properties, k) {
			data[k] = v
		}
	}
	return data
}
