package vector

import (
	"encoding/json"
	"reflect"
)

// Filters restricts results by document metadata. Each key must be present in
// the document's metadata. A scalar value must equal the document's value; a
// list value matches when the document's value equals any element (an empty
// list matches nothing). Numbers compare by value regardless of their Go type,
// so filters keep working after metadata round-trips through JSON.
type Filters map[string]interface{}

// Matches reports whether meta satisfies every predicate in f.
// Empty filters match everything.
func (f Filters) Matches(meta map[string]interface{}) bool {
	for key, want := range f {
		got, ok := meta[key]
		if !ok {
			return false
		}
		if elems, isList := listElems(want); isList {
			if !containsValue(elems, got) {
				return false
			}
			continue
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func containsValue(elems []interface{}, v interface{}) bool {
	for _, e := range elems {
		if valuesEqual(v, e) {
			return true
		}
	}
	return false
}

// listElems returns the elements of any slice or array value.
func listElems(v interface{}) ([]interface{}, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []interface{}:
		return x, true
	case []string:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func valuesEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	ae, aList := listElems(a)
	be, bList := listElems(b)
	if aList && bList {
		if len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if !valuesEqual(ae[i], be[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
