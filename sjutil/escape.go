package sjutil

const hexdig = "0123456789abcdef"

// needsEscape covers the characters that cannot appear verbatim inside
// a JSON string: the quote, the backslash, and all control characters.
var needsEscape = [256]bool{'"': true, '\\': true}

func init() {
	for c := 0; c < 0x20; c++ {
		needsEscape[c] = true
	}
}

// AddStringBody appends the JSON-escaped form of v without surrounding
// quotes. UTF-8 passes through untouched; only characters JSON requires
// to be escaped are rewritten.
func (b *Builder) AddStringBody(v string) {
	for i := 0; i < len(v); i++ {
		if needsEscape[v[i]] {
			b.escapeFrom(v, i)
			return
		}
	}
	b.B = append(b.B, v...)
}

func (b *Builder) escapeFrom(v string, first int) {
	b.B = append(b.B, v[:first]...)
	j := first
	for i := first; i < len(v); i++ {
		c := v[i]
		if !needsEscape[c] {
			continue
		}
		b.B = append(b.B, v[j:i]...)
		switch c {
		case '"':
			b.B = append(b.B, '\\', '"')
		case '\\':
			b.B = append(b.B, '\\', '\\')
		case '\n':
			b.B = append(b.B, '\\', 'n')
		case '\r':
			b.B = append(b.B, '\\', 'r')
		case '\t':
			b.B = append(b.B, '\\', 't')
		default:
			b.B = append(b.B, '\\', 'u', '0', '0', hexdig[c>>4], hexdig[c&0xf])
		}
		j = i + 1
	}
	b.B = append(b.B, v[j:]...)
}
