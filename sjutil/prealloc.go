package sjutil

// Prealloc hands out slices of a fixed backing array so that the keys
// built during configuration share one allocation. Requests that do not
// fit are returned as-is.
type Prealloc struct {
	b []byte
}

func NewPrealloc(n []byte) *Prealloc {
	return &Prealloc{b: n}
}

func (p *Prealloc) Pack(n []byte) []byte {
	if len(n) > len(p.b) {
		return n
	}
	c := p.b[:len(n)]
	p.b = p.b[len(n):]
	copy(c, n)
	return c
}
