package spanjson

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"github.com/spanjson/spanjson-go/sjbase"
	"github.com/spanjson/spanjson-go/sjbytes"
	"github.com/spanjson/spanjson-go/sjfields"
	"github.com/spanjson/spanjson-go/sjutil"
)

const (
	maxBufferToKeep = 1024 * 10
	minBuffer       = 1024
)

var _ sjbytes.Line = &line{}

type Option func(*Layer, *sjutil.Prealloc)

// TimeFormatter is the function signature for custom timestamp
// rendering if anything other than time.RFC3339Nano is desired. The
// encoded value (quotes included for strings) must be appended to the
// byte slice, which must be returned.
//
// The slice may not be accessed outside the duration of the call. The
// only acceptable operation on the slice is to append.
type TimeFormatter func(b []byte, t time.Time) []byte

// Layer is the rendering engine: it holds the configured field plan and
// reacts to the host framework's span and event notifications. A Layer
// is immutable after New aside from SetErrorReporter, and safe for
// concurrent use from any number of goroutines.
type Layer struct {
	writer        sjbytes.BytesWriter
	id            uuid.UUID
	clock         clockz.Clock
	timeFormatter TimeFormatter
	errorFunc     atomic.Pointer[func(error)]

	internalErrors bool
	traceProvider  sjbase.TraceContextProvider
	globalExt      sjbase.Extensions
	sourceInfo     *sjbase.SourceInfo

	showTimestamp   bool
	showLevel       bool
	showTarget      bool
	showFile        bool
	showLineNumber  bool
	showGoroutine   bool
	showCurrentSpan bool
	showSpanList    bool
	flattenEvent    bool

	custom []planEntry // registration order

	plan []planEntry // final emission order, fixed by New

	prealloc         *sjutil.Prealloc
	preallocatedKeys [512]byte

	linePool  sync.Pool // *line
	cachePool sync.Pool // *sjfields.Cache
}

// line is one in-flight document buffer, pooled across events.
type line struct {
	sjutil.Builder
	layer   *Layer
	scratch sjutil.Builder
	chain   []sjbase.SpanRef
	one     [1]sjfields.Field
}

func (l *line) AsBytes() []byte { return l.B }

func (l *line) ReclaimMemory() {
	if len(l.B) > maxBufferToKeep {
		return
	}
	l.layer.linePool.Put(l)
}

// New builds a Layer writing to w. The default plan matches the
// standard document schema: timestamp, level, target, fields, span,
// spans. The only configuration-time failure is a duplicate field name.
func New(w sjbytes.BytesWriter, opts ...Option) (*Layer, error) {
	l := &Layer{
		writer:          w,
		id:              uuid.New(),
		clock:           clockz.RealClock,
		timeFormatter:   defaultTimeFormatter,
		showTimestamp:   true,
		showLevel:       true,
		showTarget:      true,
		showCurrentSpan: true,
		showSpanList:    true,
	}
	l.SetErrorReporter(nil)
	l.prealloc = sjutil.NewPrealloc(l.preallocatedKeys[:])
	for _, f := range opts {
		f(l, l.prealloc)
	}
	if err := l.buildPlan(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layer) ID() string     { return l.id.String() }
func (l *Layer) Buffered() bool { return l.writer.Buffered() }

// SetErrorReporter installs the best-effort side channel for write
// failures and dropped fields. The reporter may be called from any
// goroutine, and the swap is atomic so SetErrorReporter is safe to call
// while events are being emitted. A nil reporter restores the default,
// which drops everything.
func (l *Layer) SetErrorReporter(reporter func(error)) {
	if reporter == nil {
		reporter = func(error) {}
	}
	l.errorFunc.Store(&reporter)
}

func (l *Layer) report(err error) {
	(*l.errorFunc.Load())(err)
}

// Flush flushes the underlying writer.
func (l *Layer) Flush() error { return l.writer.Flush() }

// Close closes the underlying writer. Spans and events must not be
// reported after Close.
func (l *Layer) Close() { l.writer.Close() }

// internalError reports anomalies inside the layer itself (missing
// cache slots and the like). Off unless WithInternalErrorLogging is set
// because these indicate host integration bugs, not event data issues.
func (l *Layer) internalError(err error) {
	if l.internalErrors {
		l.report(err)
	}
}

// WithClock substitutes the time source used for event timestamps.
func WithClock(clock clockz.Clock) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.clock = clock
	}
}

// WithTimeFormatter specifies how timestamps are serialized. The
// default is a quoted time.RFC3339Nano string.
func WithTimeFormatter(formatter TimeFormatter) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.timeFormatter = formatter
	}
}

// WithInternalErrorLogging routes layer-internal anomalies to the error
// reporter in addition to data-level failures.
func WithInternalErrorLogging(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.internalErrors = b
	}
}

// WithGlobalExtensions attaches the host's process-global typed
// side-storage, consulted when a span has no value for an
// extension-typed plan entry.
func WithGlobalExtensions(ext sjbase.Extensions) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.globalExt = ext
	}
}

// WithLayerID emits this layer instance's unique ID under key, so
// documents from different layers or processes can be told apart
// downstream.
func WithLayerID(key string) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.addCustom(planEntry{key: key, kind: entryStatic, staticValue: l.id.String()})
	}
}

// WithSourceInfo emits `source` and `ns` keys describing the
// instrumented program.
func WithSourceInfo(si sjbase.SourceInfo) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.sourceInfo = &si
	}
}

// WithOpenTelemetryIDs emits an `openTelemetry` object with hex traceId
// and spanId sourced from the provider. A nil provider is a no-op, so
// callers can pass through whatever their tracing layer did or did not
// attach.
func WithOpenTelemetryIDs(provider sjbase.TraceContextProvider) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.traceProvider = provider
	}
}

func defaultTimeFormatter(b []byte, t time.Time) []byte {
	b = append(b, '"')
	b = t.AppendFormat(b, time.RFC3339Nano)
	b = append(b, '"')
	return b
}
