package spanjson

import (
	"os"
	"sync"

	"github.com/spanjson/spanjson-go/sjbytes"
)

// The process-wide layer is initialized once at configuration time and
// torn down only at process exit. It is an explicit shared handle, not
// ambient mutable state: nothing in this package reads it implicitly.
var (
	defaultMu    sync.Mutex
	defaultLayer *Layer
)

// Init configures the process-wide layer. The first successful call
// wins; later calls return the already-initialized layer and their
// arguments are ignored.
func Init(w sjbytes.BytesWriter, opts ...Option) (*Layer, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLayer != nil {
		return defaultLayer, nil
	}
	l, err := New(w, opts...)
	if err != nil {
		return nil, err
	}
	defaultLayer = l
	return l, nil
}

// Default returns the process-wide layer, initializing it with the
// default schema writing to standard output on first use.
func Default() *Layer {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLayer == nil {
		// default options cannot produce a duplicate name
		defaultLayer, _ = New(sjbytes.WriteToIOWriter(os.Stdout))
	}
	return defaultLayer
}
