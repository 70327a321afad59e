// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tag

import (
	"encoding/json"
	"math"
	"sort"
)

// ToJSON converts t into JSON-compatible Go values: integers become int64,
// floats float64, arrays and lists []any, compounds map[string]any, and End
// nil. The conversion is lossy: the variant widths are not preserved.
func ToJSON(t Tag) any {
	switch v := t.(type) {
	case Byte:
		return int64(v)
	case Short:
		return int64(v)
	case Int:
		return int64(v)
	case Int64:
		return int64(v)
	case Float:
		return float64(v)
	case Double:
		return float64(v)
	case ByteArray:
		out := make([]any, len(v))
		for i, b := range v {
			out[i] = int64(b)
		}
		return out
	case IntArray:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out
	case String:
		return string(v)
	case List:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = ToJSON(item)
		}
		return out
	case Compound:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = ToJSON(item)
		}
		return out
	default:
		return nil
	}
}

// FromJSON converts a decoded JSON value into a tag tree. Integral numbers
// become Int when they fit in 32 bits and Int64 otherwise; other numbers
// become Double; booleans become Byte 0/1. Arrays must be homogeneous after
// conversion. A top-level nil becomes End; nil inside containers is dropped
// from compounds and rejected in arrays.
func FromJSON(v any) (Tag, error) {
	if v == nil {
		return End{}, nil
	}
	return fromJSON(v, 0)
}

func fromJSON(v any, depth int) (Tag, error) {
	if depth >= MaxDepth {
		return nil, errMalformed("nesting exceeds maximum depth of %d", MaxDepth)
	}
	switch x := v.(type) {
	case string:
		return String(x), nil
	case bool:
		if x {
			return Byte(1), nil
		}
		return Byte(0), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return intTag(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, errMalformed("invalid number %q", x.String())
		}
		return Double(f), nil
	case float64:
		if x == math.Trunc(x) && x >= -(1<<63) && x < 1<<63 {
			return intTag(int64(x)), nil
		}
		return Double(x), nil
	case float32:
		return Float(x), nil
	case int:
		return intTag(int64(x)), nil
	case int64:
		return intTag(x), nil
	case int32:
		return Int(x), nil
	case []any:
		items := make([]Tag, 0, len(x))
		for i, e := range x {
			if e == nil {
				return nil, errMalformed("array element %d is null", i)
			}
			t, err := fromJSON(e, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, t)
		}
		return homogeneousList(items)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Compound, len(x))
		for _, k := range keys {
			if x[k] == nil {
				continue
			}
			t, err := fromJSON(x[k], depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = t
		}
		return out, nil
	default:
		return nil, errMalformed("unsupported JSON value of type %T", v)
	}
}

func intTag(i int64) Tag {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int(i)
	}
	return Int64(i)
}

// homogeneousList widens mixed Int/Int64 and Int/Double items so that
// arrays like [1, 2.5] or [1, 1e12] still convert.
func homogeneousList(items []Tag) (Tag, error) {
	if len(items) == 0 {
		return List{Elem: TypeEnd}, nil
	}
	elem := items[0].Type()
	for _, item := range items[1:] {
		elem = widen(elem, item.Type())
	}
	for i, item := range items {
		if item.Type() == elem {
			continue
		}
		switch {
		case elem == TypeDouble && (item.Type() == TypeInt || item.Type() == TypeInt64):
			n, _ := asInt(item)
			items[i] = Double(float64(n))
		case elem == TypeInt64 && item.Type() == TypeInt:
			items[i] = Int64(item.(Int))
		default:
			return nil, errMalformed("array mixes %s and %s", elem, item.Type())
		}
	}
	return List{Elem: elem, Items: items}, nil
}

func widen(a, b Type) Type {
	if a == b {
		return a
	}
	numeric := func(t Type) bool { return t == TypeInt || t == TypeInt64 || t == TypeDouble }
	if !numeric(a) || !numeric(b) {
		return a
	}
	if a == TypeDouble || b == TypeDouble {
		return TypeDouble
	}
	return TypeInt64
}
