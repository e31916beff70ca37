package spanjson

import (
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"

	"github.com/spanjson/spanjson-go/sjbase"
	"github.com/spanjson/spanjson-go/sjfields"
	"github.com/spanjson/spanjson-go/sjutil"
)

// ErrDuplicateFieldName is returned by New when two plan entries would
// emit the same top-level key.
var ErrDuplicateFieldName = errors.New("duplicate field name")

type entryKind int

const (
	entryTimestamp entryKind = iota
	entryLevel
	entryTarget
	entryFile
	entryLineNumber
	entryGoroutine
	entryOpenTelemetry
	entrySource
	entryStatic
	entryDynamic
	entryFromSpan
	entryExtension
	entryCurrentSpan
	entrySpanList
	entryEventFields
)

// planEntry is one producer in the field plan. Entries are constructed
// at configuration time, immutable afterwards, and read concurrently
// during composition.
type planEntry struct {
	key         string
	kind        entryKind
	staticValue interface{} // entryStatic until buildPlan encodes it
	prebuilt    []byte      // `"key":<value>` fragment, comma excluded
	dynamic     func(sjbase.EventRef) (sjfields.FieldValue, bool)
	fromSpan    func(sjbase.SpanRef) (sjfields.FieldValue, bool)
	extKey      *sjbase.ExtensionKey
	marshal     func(interface{}) (sjfields.FieldValue, bool)
	flatten     bool
}

// WithTimestamp controls the `timestamp` key. On by default.
func WithTimestamp(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showTimestamp = b }
}

// WithoutTime removes the `timestamp` key.
func WithoutTime() Option { return WithTimestamp(false) }

// WithLevel controls the `level` key. On by default.
func WithLevel(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showLevel = b }
}

// WithTarget controls the `target` key. On by default.
func WithTarget(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showTarget = b }
}

// WithFile controls the `filename` key, emitted when the host captured
// a source location for the event.
func WithFile(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showFile = b }
}

// WithLineNumber controls the `line_number` key.
func WithLineNumber(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showLineNumber = b }
}

// WithGoroutineID controls the `goroutineId` key. The ID is parsed from
// the runtime stack header at composition time, so this costs more than
// the other builtins.
func WithGoroutineID(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showGoroutine = b }
}

// WithCurrentSpan controls the `span` key: the current span's name plus
// its cached fields. On by default.
func WithCurrentSpan(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showCurrentSpan = b }
}

// WithSpanList controls the `spans` key: the ancestor chain of the
// current span ordered root-first. On by default.
func WithSpanList(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.showSpanList = b }
}

// WithFlattenEvent merges the event's fields into the top level of the
// document instead of nesting them under `fields`. Flattened event
// fields are written last, so they shadow any earlier key of the same
// name for consumers that keep the last duplicate.
func WithFlattenEvent(b bool) Option {
	return func(l *Layer, _ *sjutil.Prealloc) { l.flattenEvent = b }
}

// AddStatic registers a fixed top-level key. The value is deep-copied
// at registration and encoded once at New; a value that cannot be
// encoded becomes null rather than failing configuration.
func AddStatic(key string, value interface{}) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		if _, already := value.(sjfields.FieldValue); !already {
			value = deepcopy.Copy(value)
		}
		l.addCustom(planEntry{
			key:         key,
			kind:        entryStatic,
			staticValue: value,
		})
	}
}

// AddDynamic registers a producer recomputed for every event. Returning
// false omits the key for that event.
func AddDynamic(key string, producer func(sjbase.EventRef) (sjfields.FieldValue, bool)) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.addCustom(planEntry{key: key, kind: entryDynamic, dynamic: producer})
	}
}

// AddFromSpan registers a producer evaluated against the event's
// current span. The key is omitted when there is no current span or the
// producer returns false.
func AddFromSpan(key string, producer func(sjbase.SpanRef) (sjfields.FieldValue, bool)) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.addCustom(planEntry{key: key, kind: entryFromSpan, fromSpan: producer})
	}
}

// SerializeExtension registers an extension-typed entry. At composition
// time the slot is looked up in the current span's side-storage, then
// in the process-global storage; a missing extension contributes
// nothing. With flatten set, an object value has its members merged
// into the document directly, and an empty object contributes no keys
// at all.
func SerializeExtension(key string, extKey *sjbase.ExtensionKey, flatten bool) Option {
	return SerializeExtensionFunc(key, extKey, flatten, nil)
}

// SerializeExtensionFunc is SerializeExtension with a registered
// serializer for the stored type. With a nil marshal func, a stored
// sjfields.FieldValue is used as-is and anything else goes through
// encoding/json.
func SerializeExtensionFunc(
	key string,
	extKey *sjbase.ExtensionKey,
	flatten bool,
	marshal func(interface{}) (sjfields.FieldValue, bool),
) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		l.addCustom(planEntry{
			key:     key,
			kind:    entryExtension,
			extKey:  extKey,
			marshal: marshal,
			flatten: flatten,
		})
	}
}

// RemoveKey drops a previously registered custom entry. Builtins have
// their own With* switches.
func RemoveKey(key string) Option {
	return func(l *Layer, _ *sjutil.Prealloc) {
		for i, e := range l.custom {
			if e.key == key {
				l.custom = append(l.custom[:i], l.custom[i+1:]...)
				return
			}
		}
	}
}

// addCustom replaces an entry of the same name in place, keeping its
// registration position, so option order follows last-writer-wins
// before duplicate checking even sees it.
func (l *Layer) addCustom(e planEntry) {
	for i := range l.custom {
		if l.custom[i].key == e.key {
			l.custom[i] = e
			return
		}
	}
	l.custom = append(l.custom, e)
}

// buildPlan fixes the emission order: builtins, then custom entries in
// registration order, then span, spans, and the event's fields last so
// that an event can shadow earlier keys when flattened.
func (l *Layer) buildPlan() error {
	seen := map[string]struct{}{}
	claim := func(key string) error {
		if _, dup := seen[key]; dup {
			return errors.Wrapf(ErrDuplicateFieldName, "key %q", key)
		}
		seen[key] = struct{}{}
		return nil
	}
	add := func(e planEntry) error {
		if err := claim(e.key); err != nil {
			return err
		}
		l.plan = append(l.plan, e)
		return nil
	}

	if l.showTimestamp {
		if err := add(planEntry{key: "timestamp", kind: entryTimestamp}); err != nil {
			return err
		}
	}
	if l.showLevel {
		if err := add(planEntry{key: "level", kind: entryLevel}); err != nil {
			return err
		}
	}
	if l.showTarget {
		if err := add(planEntry{key: "target", kind: entryTarget}); err != nil {
			return err
		}
	}
	if l.showFile {
		if err := add(planEntry{key: "filename", kind: entryFile}); err != nil {
			return err
		}
	}
	if l.showLineNumber {
		if err := add(planEntry{key: "line_number", kind: entryLineNumber}); err != nil {
			return err
		}
	}
	if l.showGoroutine {
		if err := add(planEntry{key: "goroutineId", kind: entryGoroutine}); err != nil {
			return err
		}
	}
	if l.traceProvider != nil {
		if err := add(planEntry{key: "openTelemetry", kind: entryOpenTelemetry}); err != nil {
			return err
		}
	}
	if l.sourceInfo != nil {
		if err := claim("ns"); err != nil {
			return err
		}
		if err := add(planEntry{key: "source", kind: entrySource, prebuilt: l.buildSourceFragment()}); err != nil {
			return err
		}
	}
	for _, e := range l.custom {
		if e.kind == entryStatic {
			e.prebuilt = l.buildStaticFragment(e.key, e.staticValue)
			e.staticValue = nil
		}
		if err := add(e); err != nil {
			return err
		}
	}
	if l.showCurrentSpan {
		if err := add(planEntry{key: "span", kind: entryCurrentSpan}); err != nil {
			return err
		}
	}
	if l.showSpanList {
		if err := add(planEntry{key: "spans", kind: entrySpanList}); err != nil {
			return err
		}
	}
	if l.flattenEvent {
		l.plan = append(l.plan, planEntry{kind: entryEventFields, flatten: true})
	} else {
		if err := add(planEntry{key: "fields", kind: entryEventFields}); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layer) buildStaticFragment(key string, value interface{}) []byte {
	var b sjutil.Builder
	b.AddKey(key)
	fv, ok := value.(sjfields.FieldValue)
	if !ok {
		fv = sjfields.Any(value)
	}
	if err := fv.AppendTo(&b); err != nil {
		b.AppendString("null")
	}
	return l.prealloc.Pack(b.B)
}

func (l *Layer) buildSourceFragment() []byte {
	si := l.sourceInfo
	var b sjutil.Builder
	b.AddSafeKey("source")
	b.AppendByte('"')
	b.AddStringBody(si.Source)
	if si.SourceVersion != nil {
		b.AppendByte(' ')
		b.AddStringBody(si.SourceVersion.String())
	}
	b.AppendByte('"')
	b.AddSafeKey("ns")
	b.AppendByte('"')
	b.AddStringBody(si.Namespace)
	if si.NamespaceVersion != nil {
		b.AppendByte(' ')
		b.AddStringBody(si.NamespaceVersion.String())
	}
	b.AppendByte('"')
	return l.prealloc.Pack(b.B)
}
