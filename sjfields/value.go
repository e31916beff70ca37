// Package sjfields holds the field value model and the per-span field
// cache. Values are kept in an already-serializable form so that cached
// fragments can be spliced into a larger document without re-encoding.
package sjfields

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/spanjson/spanjson-go/sjutil"
)

// Field is a named value attached to a span or an event.
type Field struct {
	Name  string
	Value FieldValue
}

// F builds a Field.
func F(name string, value FieldValue) Field {
	return Field{Name: name, Value: value}
}

type valueKind int

const (
	kindNull valueKind = iota
	kindString
	kindInt64
	kindUint64
	kindFloat64
	kindBool
	kindRaw
	kindObject
	kindArray
	kindAny
)

// FieldValue is a tagged union over the JSON-representable value types
// plus Raw (pre-serialized bytes) and Any (marshaled by encoding/json).
// The zero value encodes as null.
type FieldValue struct {
	kind valueKind
	str  string
	i    int64
	u    uint64
	f    float64
	b    bool
	raw  []byte
	obj  []Field
	arr  []FieldValue
	any  interface{}
}

func Null() FieldValue             { return FieldValue{kind: kindNull} }
func String(v string) FieldValue   { return FieldValue{kind: kindString, str: v} }
func Int(v int) FieldValue         { return Int64(int64(v)) }
func Int64(v int64) FieldValue     { return FieldValue{kind: kindInt64, i: v} }
func Uint64(v uint64) FieldValue   { return FieldValue{kind: kindUint64, u: v} }
func Float64(v float64) FieldValue { return FieldValue{kind: kindFloat64, f: v} }
func Bool(v bool) FieldValue       { return FieldValue{kind: kindBool, b: v} }

// Raw wraps bytes that are already valid JSON. The bytes are validated
// when encoded, not when wrapped.
func Raw(v []byte) FieldValue { return FieldValue{kind: kindRaw, raw: v} }

func Object(fields ...Field) FieldValue     { return FieldValue{kind: kindObject, obj: fields} }
func Array(values ...FieldValue) FieldValue { return FieldValue{kind: kindArray, arr: values} }

// Any defers to encoding/json at encode time. Encoding failures are
// field-local: the enclosing Record or compose drops just this field.
func Any(v interface{}) FieldValue { return FieldValue{kind: kindAny, any: v} }

// AppendTo appends the JSON encoding of v. On error nothing has been
// appended. A non-finite float is not an error: it encodes as null.
func (v FieldValue) AppendTo(b *sjutil.Builder) error {
	switch v.kind {
	case kindNull:
		b.AppendString("null")
	case kindString:
		b.AddString(v.str)
	case kindInt64:
		b.AddInt64(v.i)
	case kindUint64:
		b.AddUint64(v.u)
	case kindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			b.AppendString("null")
		} else {
			b.AddFloat64(v.f)
		}
	case kindBool:
		b.AddBool(v.b)
	case kindRaw:
		if !json.Valid(v.raw) {
			return errors.New("raw value is not valid JSON")
		}
		b.AppendBytes(v.raw)
	case kindObject:
		mark := len(b.B)
		b.AppendByte('{')
		for _, f := range v.obj {
			b.AddKey(f.Name)
			if err := f.Value.AppendTo(b); err != nil {
				b.B = b.B[:mark]
				return errors.Wrapf(err, "object member %s", f.Name)
			}
		}
		b.AppendByte('}')
	case kindArray:
		mark := len(b.B)
		b.AppendByte('[')
		for _, item := range v.arr {
			b.Comma()
			if err := item.AppendTo(b); err != nil {
				b.B = b.B[:mark]
				return err
			}
		}
		b.AppendByte(']')
	case kindAny:
		mark := len(b.B)
		enc := json.NewEncoder(b)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v.any); err != nil {
			b.B = b.B[:mark]
			return errors.Wrap(err, "encode value")
		}
		// drop the newline json.Encoder.Encode appends
		if b.B[len(b.B)-1] == '\n' {
			b.B = b.B[:len(b.B)-1]
		}
	}
	return nil
}
