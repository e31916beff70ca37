// Package sjbytes defines the byte-oriented output contract: one
// finished JSON document per line, no interleaving across threads.
package sjbytes

// Line is one finished, newline-terminated document ready to write.
type Line interface {
	AsBytes() []byte

	// ReclaimMemory is called once the writer no longer needs the
	// bytes, so the producer can pool the underlying buffer.
	ReclaimMemory()
}

// BytesWriter is the sink-side of the pipeline. Write is called with
// complete lines only; implementations guarantee that concurrent calls
// never interleave their bytes in the sink.
type BytesWriter interface {
	Buffered() bool
	Line(Line) error
	Flush() error
	Close()
}
