// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tag

import (
	"encoding/binary"
	"math"
)

// MaxDepth bounds List/Compound nesting on both encode and decode.
const MaxDepth = 512

const maxStringLen = math.MaxUint16

// Encode serializes t as a root value.
func Encode(t Tag) ([]byte, error) {
	if t == nil {
		return nil, errMalformed("cannot encode nil tag")
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(t.Type()))
	return appendPayload(buf, t, 0)
}

// MustEncode is like Encode but panics on error. Intended for fixtures.
func MustEncode(t Tag) []byte {
	b, err := Encode(t)
	if err != nil {
		panic(err)
	}
	return b
}

func appendPayload(buf []byte, t Tag, depth int) ([]byte, error) {
	switch v := t.(type) {
	case End:
		return buf, nil
	case Byte:
		return append(buf, byte(v)), nil
	case Short:
		return binary.BigEndian.AppendUint16(buf, uint16(v)), nil
	case Int:
		return binary.BigEndian.AppendUint32(buf, uint32(v)), nil
	case Int64:
		return binary.BigEndian.AppendUint64(buf, uint64(v)), nil
	case Float:
		return binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(v))), nil
	case Double:
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(float64(v))), nil
	case ByteArray:
		if len(v) > math.MaxInt32 {
			return nil, errMalformed("byte array too long: %d", len(v))
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v)))
		for _, b := range v {
			buf = append(buf, byte(b))
		}
		return buf, nil
	case IntArray:
		if len(v) > math.MaxInt32 {
			return nil, errMalformed("int array too long: %d", len(v))
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v)))
		for _, n := range v {
			buf = binary.BigEndian.AppendUint32(buf, uint32(n))
		}
		return buf, nil
	case String:
		return appendString(buf, string(v))
	case List:
		return appendList(buf, v, depth)
	case Compound:
		return appendCompound(buf, v, depth)
	case nil:
		return nil, errMalformed("nil tag in tree")
	default:
		return nil, errMalformed("unsupported tag implementation %T", t)
	}
}

func appendString(buf []byte, s string) ([]byte, error) {
	if len(s) > maxStringLen {
		return nil, errMalformed("string too long: %d bytes", len(s))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

func appendList(buf []byte, l List, depth int) ([]byte, error) {
	if depth >= MaxDepth {
		return nil, errMalformed("nesting exceeds maximum depth of %d", MaxDepth)
	}
	elem := l.Elem
	if len(l.Items) == 0 {
		if !elem.Valid() {
			return nil, errMalformed("list has invalid element type %d", byte(elem))
		}
	} else if elem == TypeEnd {
		return nil, errMalformed("non-empty list cannot have element type end")
	}
	buf = append(buf, byte(elem))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(l.Items)))
	var err error
	for i, item := range l.Items {
		if item == nil || item.Type() != elem {
			return nil, errMalformed("list item %d does not match element type %s", i, elem)
		}
		if buf, err = appendPayload(buf, item, depth+1); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendCompound(buf []byte, c Compound, depth int) ([]byte, error) {
	if depth >= MaxDepth {
		return nil, errMalformed("nesting exceeds maximum depth of %d", MaxDepth)
	}
	var err error
	for _, key := range c.Keys() {
		item := c[key]
		if item == nil {
			return nil, errMalformed("compound key %q holds nil tag", key)
		}
		if item.Type() == TypeEnd {
			return nil, errMalformed("compound key %q holds end tag", key)
		}
		buf = append(buf, byte(item.Type()))
		if buf, err = appendString(buf, key); err != nil {
			return nil, err
		}
		if buf, err = appendPayload(buf, item, depth+1); err != nil {
			return nil, err
		}
	}
	return append(buf, byte(TypeEnd)), nil
}

// Decode parses a root value. The whole input must be consumed.
func Decode(data []byte) (Tag, error) {
	d := &decoder{data: data}
	typ, err := d.readType()
	if err != nil {
		return nil, err
	}
	t, err := d.readPayload(typ, 0)
	if err != nil {
		return nil, err
	}
	if d.off != len(d.data) {
		return nil, errParse(d.off, "%d trailing bytes after root tag", len(d.data)-d.off)
	}
	return t, nil
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.remaining() {
		return nil, errParse(d.off, "unexpected end of data: need %d bytes, have %d", n, d.remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) readType() (Type, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	t := Type(b[0])
	if !t.Valid() {
		return 0, errParse(d.off-1, "unknown tag type %d", b[0])
	}
	return t, nil
}

func (d *decoder) readLength() (int, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	n := int32(binary.BigEndian.Uint32(b))
	if n < 0 {
		return 0, errParse(d.off-4, "negative length %d", n)
	}
	return int(n), nil
}

func (d *decoder) readString() (string, error) {
	b, err := d.take(2)
	if err != nil {
		return "", err
	}
	s, err := d.take(int(binary.BigEndian.Uint16(b)))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func (d *decoder) readPayload(t Type, depth int) (Tag, error) {
	switch t {
	case TypeEnd:
		return End{}, nil
	case TypeByte:
		b, err := d.take(1)
		if err != nil {
			return nil, err
		}
		return Byte(int8(b[0])), nil
	case TypeShort:
		b, err := d.take(2)
		if err != nil {
			return nil, err
		}
		return Short(int16(binary.BigEndian.Uint16(b))), nil
	case TypeInt:
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return Int(int32(binary.BigEndian.Uint32(b))), nil
	case TypeInt64:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return Int64(int64(binary.BigEndian.Uint64(b))), nil
	case TypeFloat:
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case TypeDouble:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
	case TypeByteArray:
		n, err := d.readLength()
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		out := make(ByteArray, n)
		for i, v := range b {
			out[i] = int8(v)
		}
		return out, nil
	case TypeIntArray:
		n, err := d.readLength()
		if err != nil {
			return nil, err
		}
		if n > d.remaining()/4 {
			return nil, errParse(d.off, "int array length %d exceeds remaining data", n)
		}
		out := make(IntArray, n)
		for i := range out {
			b, _ := d.take(4)
			out[i] = int32(binary.BigEndian.Uint32(b))
		}
		return out, nil
	case TypeString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TypeList:
		return d.readList(depth)
	case TypeCompound:
		return d.readCompound(depth)
	default:
		return nil, errParse(d.off, "unknown tag type %d", byte(t))
	}
}

func (d *decoder) readList(depth int) (Tag, error) {
	if depth >= MaxDepth {
		return nil, errParse(d.off, "nesting exceeds maximum depth of %d", MaxDepth)
	}
	elem, err := d.readType()
	if err != nil {
		return nil, err
	}
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	if elem == TypeEnd && n > 0 {
		return nil, errParse(d.off, "list of end tags with count %d", n)
	}
	// every non-end payload occupies at least one byte
	if n > d.remaining() {
		return nil, errParse(d.off, "list count %d exceeds remaining data", n)
	}
	l := List{Elem: elem}
	if n > 0 {
		l.Items = make([]Tag, 0, n)
	}
	for range n {
		item, err := d.readPayload(elem, depth+1)
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, item)
	}
	return l, nil
}

func (d *decoder) readCompound(depth int) (Tag, error) {
	if depth >= MaxDepth {
		return nil, errParse(d.off, "nesting exceeds maximum depth of %d", MaxDepth)
	}
	c := Compound{}
	for {
		typ, err := d.readType()
		if err != nil {
			return nil, err
		}
		if typ == TypeEnd {
			return c, nil
		}
		keyOff := d.off
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		if _, dup := c[key]; dup {
			return nil, errParse(keyOff, "duplicate compound key %q", key)
		}
		item, err := d.readPayload(typ, depth+1)
		if err != nil {
			return nil, err
		}
		c[key] = item
	}
}
