// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tag implements the recursive tagged value tree exchanged between
// scripts and host world storage, and its binary wire format.
//
// # Wire format
//
// The encoding is NBT-compatible and big-endian throughout. A root value is
// written as its type byte followed by its payload; an End root is the
// single byte 0x00. Payloads:
//
//	Byte       1 byte, two's complement
//	Short      2 bytes
//	Int        4 bytes
//	Int64      8 bytes
//	Float      4 bytes, IEEE-754 binary32
//	Double     8 bytes, IEEE-754 binary64
//	ByteArray  int32 length, then one byte per element
//	IntArray   int32 length, then 4 bytes per element
//	String     uint16 byte length, then UTF-8 bytes
//	List       element type byte, int32 count, then count payloads
//	Compound   (type byte, String name, payload)*, then 0x00
//
// Compound entries are written in sorted key order so that encoding is
// deterministic: Encode(Decode(b)) reproduces b for any b produced by Encode.
package tag

import (
	"fmt"
	"sort"
)

// Type identifies a tag variant. Values match the wire type byte.
type Type byte

// Tag type ids.
const (
	TypeEnd Type = iota
	TypeByte
	TypeShort
	TypeInt
	TypeInt64
	TypeFloat
	TypeDouble
	TypeByteArray
	TypeString
	TypeList
	TypeCompound
	TypeIntArray
)

var typeNames = [...]string{
	TypeEnd:       "end",
	TypeByte:      "byte",
	TypeShort:     "short",
	TypeInt:       "int",
	TypeInt64:     "int64",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeByteArray: "byte_array",
	TypeString:    "string",
	TypeList:      "list",
	TypeCompound:  "compound",
	TypeIntArray:  "int_array",
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// Valid reports whether t is one of the 12 known type ids.
func (t Type) Valid() bool {
	return t <= TypeIntArray
}

// ParseType resolves a type name as returned by Type.String.
func ParseType(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return 0, false
}

// Tag is one node of a tag tree. The set of implementations is closed.
type Tag interface {
	Type() Type
	// String returns a human-readable debug form. It is not part of the
	// wire contract and does not round-trip.
	String() string
	isTag()
}

// Byte is a signed 8-bit integer.
type Byte int8

// Short is a signed 16-bit integer.
type Short int16

// Int is a signed 32-bit integer.
type Int int32

// Int64 is a signed 64-bit integer.
type Int64 int64

// Float is a 32-bit float.
type Float float32

// Double is a 64-bit float.
type Double float64

// ByteArray is a raw sequence of signed bytes.
type ByteArray []int8

// IntArray is a raw sequence of signed 32-bit integers.
type IntArray []int32

// String is a UTF-8 string of at most 65535 encoded bytes.
type String string

// List is a homogeneous sequence of tags. Elem is the element type; an
// empty list conventionally has Elem TypeEnd.
type List struct {
	Elem  Type
	Items []Tag
}

// Compound maps names to tags. Key order is irrelevant.
type Compound map[string]Tag

// End terminates compounds on the wire. As a standalone value it stands
// for "no data".
type End struct{}

func (Byte) Type() Type      { return TypeByte }
func (Short) Type() Type     { return TypeShort }
func (Int) Type() Type       { return TypeInt }
func (Int64) Type() Type     { return TypeInt64 }
func (Float) Type() Type     { return TypeFloat }
func (Double) Type() Type    { return TypeDouble }
func (ByteArray) Type() Type { return TypeByteArray }
func (IntArray) Type() Type  { return TypeIntArray }
func (String) Type() Type    { return TypeString }
func (List) Type() Type      { return TypeList }
func (Compound) Type() Type  { return TypeCompound }
func (End) Type() Type       { return TypeEnd }

func (Byte) isTag()      {}
func (Short) isTag()     {}
func (Int) isTag()       {}
func (Int64) isTag()     {}
func (Float) isTag()     {}
func (Double) isTag()    {}
func (ByteArray) isTag() {}
func (IntArray) isTag()  {}
func (String) isTag()    {}
func (List) isTag()      {}
func (Compound) isTag()  {}
func (End) isTag()       {}

// ListOf builds a list whose element type is taken from the first item.
// Homogeneity is checked when the list is encoded.
func ListOf(items ...Tag) List {
	if len(items) == 0 {
		return List{Elem: TypeEnd}
	}
	return List{Elem: items[0].Type(), Items: items}
}

// NewList builds a list from items, widening mixed Int, Int64, and Double
// items to a common type. Any other mix is rejected.
func NewList(items ...Tag) (List, error) {
	for i, item := range items {
		if item == nil || item.Type() == TypeEnd {
			return List{}, errMalformed("list item %d is empty", i)
		}
	}
	l, err := homogeneousList(append([]Tag(nil), items...))
	if err != nil {
		return List{}, err
	}
	return l.(List), nil
}

// Len returns the number of items.
func (l List) Len() int { return len(l.Items) }

// Keys returns the compound keys in sorted order.
func (c Compound) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the String value stored under key.
func (c Compound) GetString(key string) (string, bool) {
	v, ok := c[key].(String)
	return string(v), ok
}

// GetInt returns an integral value stored under key, widening Byte, Short,
// Int, and Int64.
func (c Compound) GetInt(key string) (int64, bool) {
	return asInt(c[key])
}

func asInt(t Tag) (int64, bool) {
	switch v := t.(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Int64:
		return int64(v), true
	}
	return 0, false
}

// GetDouble returns a numeric value stored under key as float64.
func (c Compound) GetDouble(key string) (float64, bool) {
	switch v := c[key].(type) {
	case Float:
		return float64(v), true
	case Double:
		return float64(v), true
	}
	if i, ok := c.GetInt(key); ok {
		return float64(i), true
	}
	return 0, false
}

// GetCompound returns the nested compound stored under key.
func (c Compound) GetCompound(key string) (Compound, bool) {
	v, ok := c[key].(Compound)
	return v, ok
}

// GetList returns the list stored under key.
func (c Compound) GetList(key string) (List, bool) {
	v, ok := c[key].(List)
	return v, ok
}

// Clone returns a deep copy of t.
func Clone(t Tag) Tag {
	switch v := t.(type) {
	case ByteArray:
		return append(ByteArray(nil), v...)
	case IntArray:
		return append(IntArray(nil), v...)
	case List:
		items := make([]Tag, len(v.Items))
		for i, item := range v.Items {
			items[i] = Clone(item)
		}
		return List{Elem: v.Elem, Items: items}
	case Compound:
		out := make(Compound, len(v))
		for k, item := range v {
			out[k] = Clone(item)
		}
		return out
	default:
		return t
	}
}
