// Package wire is a small lossless layer over protowire: it splits an encoded
// message into its top-level fields, keeping each field's exact encoding so
// that fields the caller does not interpret can be written back untouched.
package wire

import (
	"sort"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one top-level field of an encoded message.
type Field struct {
	Num  protowire.Number
	Type protowire.Type

	// Raw is the complete encoding of the field, tag included.
	Raw []byte

	// Bytes holds the payload of a length-delimited field.
	Bytes []byte

	// Varint holds the value of a varint field.
	Varint uint64
}

// Parse splits b into its top-level fields, in wire order.
// The returned fields alias b.
func Parse(b []byte) ([]Field, error) {
	var fields []Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "reading field tag")
		}
		m := protowire.ConsumeFieldValue(num, typ, b[n:])
		if m < 0 {
			return nil, errors.Wrapf(protowire.ParseError(m), "reading field %d", num)
		}
		f := Field{Num: num, Type: typ, Raw: b[:n+m]}
		switch typ {
		case protowire.BytesType:
			f.Bytes, _ = protowire.ConsumeBytes(b[n:])
		case protowire.VarintType:
			f.Varint, _ = protowire.ConsumeVarint(b[n:])
		}
		fields = append(fields, f)
		b = b[n+m:]
	}
	return fields, nil
}

// Expect returns an error if f does not have the wire type typ.
func (f Field) Expect(typ protowire.Type) error {
	if f.Type != typ {
		return errors.Errorf("field %d: wire type %d, expected %d", f.Num, f.Type, typ)
	}
	return nil
}

// Text returns the payload of a length-delimited field as a string.
func (f Field) Text() (string, error) {
	if err := f.Expect(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.Bytes), nil
}

// Strings decodes every occurrence of field num in b as a string,
// which is how a repeated string field is encoded.
func Strings(b []byte, num protowire.Number) ([]string, error) {
	fields, err := Parse(b)
	if err != nil {
		return nil, err
	}
	values := []string{}
	for _, f := range fields {
		if f.Num != num {
			continue
		}
		s, err := f.Text()
		if err != nil {
			return nil, err
		}
		values = append(values, s)
	}
	return values, nil
}

// Int64s decodes every occurrence of field num in b as int64 values,
// accepting both the packed and the unpacked encoding.
func Int64s(b []byte, num protowire.Number) ([]int64, error) {
	fields, err := Parse(b)
	if err != nil {
		return nil, err
	}
	values := []int64{}
	for _, f := range fields {
		if f.Num != num {
			continue
		}
		switch f.Type {
		case protowire.VarintType:
			values = append(values, int64(f.Varint))
		case protowire.BytesType:
			packed := f.Bytes
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, errors.Wrapf(protowire.ParseError(n), "reading packed field %d", num)
				}
				values = append(values, int64(v))
				packed = packed[n:]
			}
		default:
			return nil, errors.Errorf("field %d: wire type %d is not an integer encoding", num, f.Type)
		}
	}
	return values, nil
}

// AppendBytes appends a length-delimited field. Embedded messages use it too.
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendString appends a string field, skipping the empty string as proto3
// does for singular scalars.
func AppendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendVarint appends a varint field, skipping zero.
func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendStrings appends a repeated string field.
func AppendStrings(b []byte, num protowire.Number, values []string) []byte {
	for _, v := range values {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// AppendPackedInt64s appends a packed repeated int64 field.
func AppendPackedInt64s(b []byte, num protowire.Number, values []int64) []byte {
	if len(values) == 0 {
		return b
	}
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	return AppendBytes(b, num, packed)
}

// AppendRaw re-emits previously parsed fields unchanged.
func AppendRaw(b []byte, fields []Field) []byte {
	for _, f := range fields {
		b = append(b, f.Raw...)
	}
	return b
}

// Builder collects the fields of a message and encodes them in ascending
// field-number order, keeping the relative order of fields that share a
// number. Parsing a canonically serialized message and rebuilding it from
// the same fields therefore yields the same bytes.
type Builder struct {
	fields []Field
}

// Raw adds previously parsed fields.
func (b *Builder) Raw(fields ...Field) {
	b.fields = append(b.fields, fields...)
}

// Bytes adds a length-delimited field, including when v is empty.
func (b *Builder) Bytes(num protowire.Number, v []byte) {
	b.add(num, AppendBytes(nil, num, v))
}

// String adds a string field unless v is empty.
func (b *Builder) String(num protowire.Number, v string) {
	b.add(num, AppendString(nil, num, v))
}

// Varint adds a varint field unless v is zero.
func (b *Builder) Varint(num protowire.Number, v uint64) {
	b.add(num, AppendVarint(nil, num, v))
}

// Strings adds a repeated string field.
func (b *Builder) Strings(num protowire.Number, values []string) {
	for _, v := range values {
		b.Bytes(num, []byte(v))
	}
}

// PackedInt64s adds a packed repeated int64 field.
func (b *Builder) PackedInt64s(num protowire.Number, values []int64) {
	b.add(num, AppendPackedInt64s(nil, num, values))
}

func (b *Builder) add(num protowire.Number, raw []byte) {
	if len(raw) == 0 {
		return
	}
	b.fields = append(b.fields, Field{Num: num, Raw: raw})
}

// Encode returns the encoded message.
func (b *Builder) Encode() []byte {
	sort.SliceStable(b.fields, func(i, j int) bool {
		return b.fields[i].Num < b.fields[j].Num
	})
	var out []byte
	for _, f := range b.fields {
		out = append(out, f.Raw...)
	}
	return out
}
