package sjutil

import (
	"io"
	"strconv"
)

// Builder accumulates raw JSON text. It does no validation: callers are
// responsible for producing well-formed output. Methods named Add* emit
// complete JSON tokens, methods named Append* emit bytes verbatim.
type Builder struct {
	B []byte
}

var _ io.Writer = &Builder{}

// Comma adds a comma unless the previous byte makes one
// unnecessary: '{', '[', ':', or an empty buffer.
func (b *Builder) Comma() {
	if len(b.B) == 0 {
		return
	}
	switch b.B[len(b.B)-1] {
	case '[', '{', ':':
		return
	}
	b.B = append(b.B, ',')
}

func (b *Builder) AppendByte(v byte) {
	b.B = append(b.B, v)
}

// AppendBytes adds the bytes without wrapping or escaping.
func (b *Builder) AppendBytes(v []byte) {
	b.B = append(b.B, v...)
}

// AppendString adds the string without wrapping or escaping.
func (b *Builder) AppendString(v string) {
	b.B = append(b.B, v...)
}

// Write allows Builder to be an io.Writer.
func (b *Builder) Write(v []byte) (int, error) {
	b.B = append(b.B, v...)
	return len(v), nil
}

func (b *Builder) Reset() {
	b.B = b.B[:0]
}

// AddSafeString adds a JSON string that is known to not need escaping.
func (b *Builder) AddSafeString(v string) {
	b.B = append(b.B, '"')
	b.B = append(b.B, v...)
	b.B = append(b.B, '"')
}

// AddString adds a JSON-encoded string.
func (b *Builder) AddString(v string) {
	b.B = append(b.B, '"')
	b.AddStringBody(v)
	b.B = append(b.B, '"')
}

func (b *Builder) AddUint64(i uint64) {
	b.B = strconv.AppendUint(b.B, i, 10)
}

// AddFloat64 assumes v is finite. Callers that can see NaN or an
// infinity must substitute before calling.
func (b *Builder) AddFloat64(f float64) {
	b.B = strconv.AppendFloat(b.B, f, 'f', -1, 64)
}

func (b *Builder) AddInt64(i int64) {
	b.B = strconv.AppendInt(b.B, i, 10)
}

func (b *Builder) AddBool(v bool) {
	b.B = strconv.AppendBool(b.B, v)
}

// AddKey adds a comma if needed, then the escaped key and a colon.
func (b *Builder) AddKey(v string) {
	b.Comma()
	b.AddString(v)
	b.B = append(b.B, ':')
}

// AddSafeKey is AddKey for keys known to not need escaping.
func (b *Builder) AddSafeKey(v string) {
	b.Comma()
	b.B = append(b.B, '"')
	b.B = append(b.B, v...)
	b.B = append(b.B, '"', ':')
}

// BuildKey returns `,"key":` as a standalone fragment for prefilling.
func BuildKey(v string) []byte {
	b := &Builder{}
	b.B = append(b.B, ',')
	b.AddString(v)
	b.B = append(b.B, ':')
	return b.B
}
