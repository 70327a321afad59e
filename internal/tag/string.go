// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tag

import (
	"regexp"
	"strconv"
	"strings"
)

// bareKey matches compound keys that need no quoting in the debug form.
var bareKey = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)

func (v Byte) String() string  { return strconv.Itoa(int(v)) + "b" }
func (v Short) String() string { return strconv.Itoa(int(v)) + "s" }
func (v Int) String() string   { return strconv.Itoa(int(v)) }
func (v Int64) String() string { return strconv.FormatInt(int64(v), 10) + "L" }

func (v Float) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32) + "f"
}

func (v Double) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64) + "d"
}

func (v ByteArray) String() string {
	var sb strings.Builder
	sb.WriteString("[B;")
	for i, b := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(b)))
		sb.WriteByte('b')
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v IntArray) String() string {
	var sb strings.Builder
	sb.WriteString("[I;")
	for i, n := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(n)))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v String) String() string { return strconv.Quote(string(v)) }

func (v List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, item := range v.Items {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeDebug(&sb, item)
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v Compound) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		if bareKey.MatchString(k) {
			sb.WriteString(k)
		} else {
			sb.WriteString(strconv.Quote(k))
		}
		sb.WriteByte(':')
		writeDebug(&sb, v[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

func (End) String() string { return "END" }

func writeDebug(sb *strings.Builder, t Tag) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	sb.WriteString(t.String())
}
