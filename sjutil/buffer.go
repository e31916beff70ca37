package sjutil

import (
	"strings"
	"sync"
)

// Buffer is an io.Writer sink for tests. It is safe for concurrent
// writers so that interleaving tests can hammer it from many goroutines.
type Buffer struct {
	mu sync.Mutex
	b  []byte
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b = append(b.b, p...)
	return len(p), nil
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.b)
}

func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := make([]byte, len(b.b))
	copy(c, b.b)
	return c
}

// Lines returns the complete newline-terminated lines written so far.
func (b *Buffer) Lines() []string {
	s := b.String()
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b = b.b[:0]
}
