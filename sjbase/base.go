// Package sjbase defines the contracts between the spanjson rendering
// core and the host instrumentation framework that owns the span tree.
// The core only reacts to lifecycle notifications; it never creates,
// enters, or closes spans and never stores parent identity.
package sjbase

import (
	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanjson/spanjson-go/sjfields"
	"github.com/spanjson/spanjson-go/sjnum"
)

// SpanRef is the host's view of one live span. Parent reflects the
// chain the host sees at call time: the core reads it fresh on every
// event and never caches ancestor identity.
type SpanRef interface {
	Name() string

	// Parent returns false for a root span, and also when the parent
	// has already been closed or evicted by the host. The caller
	// treats that as "no further ancestors".
	Parent() (SpanRef, bool)

	// Extensions is the host-provided typed side-storage for this
	// span. The core keeps its field cache in one slot; hosts and
	// applications may keep anything else in others.
	Extensions() Extensions
}

// EventRef is a single point-in-time occurrence being rendered.
type EventRef interface {
	Level() sjnum.Level
	Target() string
	Message() string

	// Fields visits the event's own recorded fields in order. The
	// visitor returns false to stop early.
	Fields(func(name string, value sjfields.FieldValue) bool)

	// CurrentSpan returns the span the event occurred in, if any.
	CurrentSpan() (SpanRef, bool)

	// Caller identifies the source location of the event when the
	// host captured one.
	Caller() (file string, line int, ok bool)
}

// ExtensionKey identifies one slot of typed side-storage. Keys compare
// by identity, like context keys, so two packages registering the same
// name cannot collide.
type ExtensionKey struct {
	name string
}

func NewExtensionKey(name string) *ExtensionKey {
	return &ExtensionKey{name: name}
}

func (k *ExtensionKey) Name() string { return k.name }

// Extensions is typed side-storage, either per-span or process-global.
// Implementations must allow Get during composition to run concurrently
// with Get on other keys; Set on a span's extensions follows the host's
// per-span exclusivity discipline.
type Extensions interface {
	Get(key *ExtensionKey) (interface{}, bool)
	Set(key *ExtensionKey, value interface{})
}

// TraceContextProvider supplies distributed-tracing correlation IDs for
// a span. The core consumes only the two final ID strings; ownership of
// propagation belongs to the tracing layer upstream.
type TraceContextProvider interface {
	SpanContext(span SpanRef) (trace.SpanContext, bool)
}

// SourceInfo describes the instrumented program, emitted as the
// `source` and `ns` document keys when configured.
type SourceInfo struct {
	Source           string
	SourceVersion    *semver.Version
	Namespace        string
	NamespaceVersion *semver.Version
}
