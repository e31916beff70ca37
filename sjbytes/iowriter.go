package sjbytes

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

var _ BytesWriter = &IOWriter{}

// IOWriter adapts any io.Writer into a BytesWriter. A single mutex
// makes each line atomic from the sink's point of view; composition
// happens before Line is called, so the critical section is only the
// final byte write.
type IOWriter struct {
	mu      sync.Mutex
	w       io.Writer
	retries int
}

type IOWriterOption func(*IOWriter)

// WithRetries sets how many additional write attempts are made after a
// failure before the line is dropped. The default is zero: report and
// drop. Delivery is best-effort either way.
func WithRetries(n int) IOWriterOption {
	return func(iow *IOWriter) {
		iow.retries = n
	}
}

func WriteToIOWriter(w io.Writer, opts ...IOWriterOption) *IOWriter {
	iow := &IOWriter{w: w}
	for _, opt := range opts {
		opt(iow)
	}
	return iow
}

func (iow *IOWriter) Buffered() bool { return false }

// Line writes one document. Short writes are resumed from where they
// stopped so a retried line never duplicates bytes in the sink.
func (iow *IOWriter) Line(line Line) error {
	b := line.AsBytes()
	iow.mu.Lock()
	var err error
	off := 0
	for attempt := 0; attempt <= iow.retries; attempt++ {
		var n int
		n, err = iow.w.Write(b[off:])
		off += n
		if err == nil && off == len(b) {
			break
		}
		if err == nil {
			err = io.ErrShortWrite
		}
	}
	iow.mu.Unlock()
	line.ReclaimMemory()
	return errors.Wrap(err, "write line")
}

func (iow *IOWriter) Flush() error {
	type flusher interface {
		Flush() error
	}
	iow.mu.Lock()
	defer iow.mu.Unlock()
	if f, ok := iow.w.(flusher); ok {
		return errors.Wrap(f.Flush(), "flush sink")
	}
	return nil
}

func (iow *IOWriter) Close() {
	iow.mu.Lock()
	defer iow.mu.Unlock()
	if wc, ok := iow.w.(io.WriteCloser); ok {
		_ = wc.Close()
	}
}
