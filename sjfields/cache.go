package sjfields

import (
	"github.com/pkg/errors"

	"github.com/spanjson/spanjson-go/sjutil"
)

// Cache is the per-span field store. It keeps the fields in insertion
// order and maintains, after every mutation, a serialized JSON object
// body (no surrounding braces) that is byte-exact for the current field
// set. Emission is therefore a byte copy, not an encode.
//
// A Cache is not self-locking: the host framework's per-span extension
// discipline must sequence Record against Record and against Snapshot
// on the same span. Snapshots of different spans may run concurrently.
type Cache struct {
	entries []fieldEntry
	index   map[string]int
	buf     sjutil.Builder
	scratch sjutil.Builder
}

// fieldEntry records where a field's encoded value lives inside buf.
// buf.B[start:end] is the value; the `"name":` prefix sits just before.
type fieldEntry struct {
	name       string
	start, end int
}

// New allocates a cache and encodes the initial fields once. It always
// returns a usable cache; a non-nil error means one or more fields were
// unrepresentable and were dropped (advisory, for the error reporter).
func New(initial []Field) (*Cache, error) {
	c := &Cache{index: make(map[string]int, len(initial))}
	err := c.Record(initial)
	return c, err
}

// Record merges fields into the cache. A field already present keeps
// its position and gets the new value spliced over the old one's byte
// range; a new field is appended. Fields not named in the call are
// never re-encoded and their bytes are not rewritten (they may shift).
//
// Failures are per-field: an unencodable value drops that one field
// (or update) and the rest of the call still applies. The returned
// error reports the first such drop. The serialized form is valid at
// every return, and encoding happens into a scratch buffer before any
// shared state is touched, so a panicking custom marshaler cannot leave
// a half-written buffer behind.
func (c *Cache) Record(more []Field) error {
	var firstErr error
	for _, f := range more {
		c.scratch.Reset()
		if err := f.Value.AppendTo(&c.scratch); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "field %q dropped", f.Name)
			}
			continue
		}
		if i, ok := c.index[f.Name]; ok {
			c.splice(i, c.scratch.B)
		} else {
			c.appendField(f.Name, c.scratch.B)
		}
	}
	return firstErr
}

func (c *Cache) appendField(name string, enc []byte) {
	c.buf.AddKey(name)
	start := len(c.buf.B)
	c.buf.AppendBytes(enc)
	c.entries = append(c.entries, fieldEntry{name: name, start: start, end: len(c.buf.B)})
	c.index[name] = len(c.entries) - 1
}

// splice replaces entry i's value bytes with enc, shifting everything
// after it. Pure byte copying; cannot fail partway.
func (c *Cache) splice(i int, enc []byte) {
	e := c.entries[i]
	delta := len(enc) - (e.end - e.start)
	switch {
	case delta == 0:
		copy(c.buf.B[e.start:e.end], enc)
	case delta > 0:
		c.buf.B = append(c.buf.B, enc[:delta]...) // grow; placeholder bytes
		copy(c.buf.B[e.end+delta:], c.buf.B[e.end:len(c.buf.B)-delta])
		copy(c.buf.B[e.start:], enc)
	default:
		copy(c.buf.B[e.start:], enc)
		copy(c.buf.B[e.start+len(enc):], c.buf.B[e.end:])
		c.buf.B = c.buf.B[:len(c.buf.B)+delta]
	}
	if delta != 0 {
		c.entries[i].end += delta
		for j := i + 1; j < len(c.entries); j++ {
			c.entries[j].start += delta
			c.entries[j].end += delta
		}
	}
}

// Snapshot returns the serialized object body for splicing. The slice
// aliases the cache's buffer: it is valid until the next Record on this
// span, which the host's sequencing guarantee already rules out during
// composition.
func (c *Cache) Snapshot() []byte {
	return c.buf.B
}

// Len reports the number of distinct fields recorded.
func (c *Cache) Len() int {
	return len(c.entries)
}

// ValueRange returns the byte range of name's encoded value within
// Snapshot, for tests that verify incrementality.
func (c *Cache) ValueRange(name string) (start, end int, ok bool) {
	i, ok := c.index[name]
	if !ok {
		return 0, 0, false
	}
	return c.entries[i].start, c.entries[i].end, true
}

// Reset clears the cache for reuse from a pool.
func (c *Cache) Reset() {
	c.entries = c.entries[:0]
	c.buf.Reset()
	for k := range c.index {
		delete(c.index, k)
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
}
