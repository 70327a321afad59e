// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tag

import (
	"math"
	"slices"
)

// Equal reports structural equality. Compound keys are compared as sets and
// floats by bit pattern, so a decoded NaN equals the NaN that was encoded.
func Equal(a, b Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case Float:
		return math.Float32bits(float32(x)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Double)))
	case ByteArray:
		return slices.Equal(x, b.(ByteArray))
	case IntArray:
		return slices.Equal(x, b.(IntArray))
	case List:
		y := b.(List)
		if len(x.Items) != len(y.Items) {
			return false
		}
		// empty lists are equal whatever element type they declare
		if len(x.Items) > 0 && x.Elem != y.Elem {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case Compound:
		y := b.(Compound)
		if len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
