// Package sjtest is an in-memory host framework for exercising a
// spanjson.Layer in tests: a span tree with extension side-storage,
// event construction, and a record of everything emitted.
package sjtest

import (
	"sync"
	"testing"

	"github.com/muir/list"
	"go.opentelemetry.io/otel/trace"

	spanjson "github.com/spanjson/spanjson-go"
	"github.com/spanjson/spanjson-go/sjbase"
	"github.com/spanjson/spanjson-go/sjfields"
	"github.com/spanjson/spanjson-go/sjnum"
)

var (
	_ sjbase.SpanRef              = &Span{}
	_ sjbase.EventRef             = &Event{}
	_ sjbase.Extensions           = &Extensions{}
	_ sjbase.TraceContextProvider = &TraceProvider{}
)

// Host plays the instrumentation framework: it owns the span tree and
// drives the layer's notifications the way a real host would.
type Host struct {
	t      testing.TB
	Layer  *spanjson.Layer
	Global *Extensions

	mu     sync.Mutex
	events []*Event
}

func New(t testing.TB, layer *spanjson.Layer) *Host {
	return &Host{
		t:      t,
		Layer:  layer,
		Global: NewExtensions(),
	}
}

// Span is one host-owned span. It satisfies the host side of the
// contract: per-span exclusivity is the caller's job, same as in a real
// host, and Parent reflects closure.
type Span struct {
	host   *Host
	name   string
	parent *Span
	ext    *Extensions

	mu     sync.Mutex
	closed bool
}

// StartSpan creates a span under parent (nil for a root) and notifies
// the layer with the initial fields.
func (h *Host) StartSpan(name string, parent *Span, fields ...sjfields.Field) *Span {
	if parent != nil && parent.host != h {
		h.t.Fatalf("span %q started under a parent from a different host", name)
	}
	s := &Span{
		host:   h,
		name:   name,
		parent: parent,
		ext:    NewExtensions(),
	}
	h.Layer.SpanCreated(s, fields...)
	return s
}

func (s *Span) Name() string { return s.name }

func (s *Span) Parent() (sjbase.SpanRef, bool) {
	if s.parent == nil {
		return nil, false
	}
	s.parent.mu.Lock()
	closed := s.parent.closed
	s.parent.mu.Unlock()
	if closed {
		return nil, false
	}
	return s.parent, true
}

func (s *Span) Extensions() sjbase.Extensions { return s.ext }

// Record forwards newly recorded fields to the layer.
func (s *Span) Record(fields ...sjfields.Field) {
	s.host.Layer.SpanRecorded(s, fields...)
}

// Close marks the span gone; descendants then report it as "no further
// ancestors", which is how hosts surface concurrent eviction.
func (s *Span) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Event is one point-in-time occurrence. Fill in the exported fields
// and pass it to Host.Emit, or use Host.Event for the common case.
type Event struct {
	Lvl  sjnum.Level
	Tgt  string
	Msg  string
	Flds []sjfields.Field
	Span *Span // nil when there is no current span
	File string
	Line int
}

func (e *Event) Level() sjnum.Level { return e.Lvl }
func (e *Event) Target() string     { return e.Tgt }
func (e *Event) Message() string    { return e.Msg }

func (e *Event) Fields(visit func(name string, value sjfields.FieldValue) bool) {
	for _, f := range e.Flds {
		if !visit(f.Name, f.Value) {
			return
		}
	}
}

func (e *Event) CurrentSpan() (sjbase.SpanRef, bool) {
	if e.Span == nil {
		return nil, false
	}
	return e.Span, true
}

func (e *Event) Caller() (string, int, bool) {
	if e.File == "" {
		return "", 0, false
	}
	return e.File, e.Line, true
}

// Emit records the event, logs it for failure context, and forwards it
// to the layer.
func (h *Host) Emit(ev *Event) {
	if ev.Span != nil && ev.Span.host != h {
		h.t.Fatalf("event %q emitted in a span from a different host", ev.Msg)
	}
	h.t.Logf("event %s %s: %s", ev.Lvl, ev.Tgt, ev.Msg)
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.Layer.Event(ev)
}

// Event emits an event in span (nil for none).
func (h *Host) Event(span *Span, level sjnum.Level, target, msg string, fields ...sjfields.Field) {
	h.Emit(&Event{
		Lvl:  level,
		Tgt:  target,
		Msg:  msg,
		Flds: fields,
		Span: span,
	})
}

// Events returns a copy of everything emitted so far.
func (h *Host) Events() []*Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return list.Copy(h.events)
}

// Extensions is map-backed typed side-storage, usable both per-span and
// process-global.
type Extensions struct {
	mu sync.RWMutex
	m  map[*sjbase.ExtensionKey]interface{}
}

func NewExtensions() *Extensions {
	return &Extensions{m: make(map[*sjbase.ExtensionKey]interface{})}
}

func (e *Extensions) Get(key *sjbase.ExtensionKey) (interface{}, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.m[key]
	return v, ok
}

func (e *Extensions) Set(key *sjbase.ExtensionKey, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.m[key] = value
}

// TraceProvider hands out fixed trace contexts per span, standing in
// for a distributed-tracing layer.
type TraceProvider struct {
	mu sync.RWMutex
	m  map[*Span]trace.SpanContext
}

func NewTraceProvider() *TraceProvider {
	return &TraceProvider{m: make(map[*Span]trace.SpanContext)}
}

func (p *TraceProvider) Attach(span *Span, sc trace.SpanContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[span] = sc
}

func (p *TraceProvider) SpanContext(span sjbase.SpanRef) (trace.SpanContext, bool) {
	s, ok := span.(*Span)
	if !ok {
		return trace.SpanContext{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	sc, ok := p.m[s]
	return sc, ok
}
