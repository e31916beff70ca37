package spanjson

import (
	"runtime"

	"github.com/pkg/errors"

	"github.com/spanjson/spanjson-go/sjbase"
	"github.com/spanjson/spanjson-go/sjfields"
	"github.com/spanjson/spanjson-go/sjutil"
)

// Event renders one document for ev and hands it to the writer. The
// whole composition runs with no lock held; only the writer's final
// byte-write is serialized. Composition is read-only with respect to
// span caches: mutation happens solely in SpanCreated/SpanRecorded.
//
// Failures never propagate to the caller: they go to the error
// reporter and the event (or the single affected field) is dropped.
func (l *Layer) Event(ev sjbase.EventRef) {
	ln := l.line()
	ln.AppendByte('{')
	span, hasSpan := ev.CurrentSpan()
	for i := range l.plan {
		l.composeEntry(ln, &l.plan[i], ev, span, hasSpan)
	}
	ln.AppendBytes([]byte{'}', '\n'})
	if err := l.writer.Line(ln); err != nil {
		l.report(err)
	}
}

func (l *Layer) composeEntry(ln *line, e *planEntry, ev sjbase.EventRef, span sjbase.SpanRef, hasSpan bool) {
	switch e.kind {
	case entryTimestamp:
		ln.AddSafeKey("timestamp")
		ln.B = l.timeFormatter(ln.B, l.clock.Now())
	case entryLevel:
		ln.AddSafeKey("level")
		ln.AddSafeString(ev.Level().String())
	case entryTarget:
		ln.AddSafeKey("target")
		ln.AddString(ev.Target())
	case entryFile:
		if file, _, ok := ev.Caller(); ok {
			ln.AddSafeKey("filename")
			ln.AddString(file)
		}
	case entryLineNumber:
		if _, lineNo, ok := ev.Caller(); ok {
			ln.AddSafeKey("line_number")
			ln.AddInt64(int64(lineNo))
		}
	case entryGoroutine:
		ln.AddSafeKey("goroutineId")
		ln.AddInt64(goroutineID())
	case entryOpenTelemetry:
		if !hasSpan {
			return
		}
		sc, ok := l.traceProvider.SpanContext(span)
		if !ok || !sc.IsValid() {
			return
		}
		ln.AddSafeKey("openTelemetry")
		ln.AppendString(`{"traceId":"`)
		ln.AppendString(sc.TraceID().String())
		ln.AppendString(`","spanId":"`)
		ln.AppendString(sc.SpanID().String())
		ln.AppendString(`"}`)
	case entrySource, entryStatic:
		ln.Comma()
		ln.AppendBytes(e.prebuilt)
	case entryDynamic:
		v, ok := e.dynamic(ev)
		if !ok {
			return
		}
		l.appendValue(ln, e.key, v)
	case entryFromSpan:
		if !hasSpan {
			return
		}
		v, ok := e.fromSpan(span)
		if !ok {
			return
		}
		l.appendValue(ln, e.key, v)
	case entryExtension:
		l.composeExtension(ln, e, span, hasSpan)
	case entryCurrentSpan:
		if !hasSpan {
			return
		}
		ln.AddSafeKey("span")
		l.writeSpanObject(ln, span)
	case entrySpanList:
		if !hasSpan {
			return
		}
		ln.chain = ln.chain[:0]
		for s, ok := span, true; ok; s, ok = s.Parent() {
			ln.chain = append(ln.chain, s)
		}
		ln.AddSafeKey("spans")
		ln.AppendByte('[')
		// collected leaf-first; emitted root-first
		for i := len(ln.chain) - 1; i >= 0; i-- {
			ln.Comma()
			l.writeSpanObject(ln, ln.chain[i])
		}
		ln.AppendByte(']')
	case entryEventFields:
		l.composeEventFields(ln, e, ev)
	}
}

// appendValue encodes v into the scratch buffer first so that an
// encoding failure drops just this key and leaves the line intact.
func (l *Layer) appendValue(ln *line, key string, v sjfields.FieldValue) {
	ln.scratch.Reset()
	if err := v.AppendTo(&ln.scratch); err != nil {
		l.report(errors.Wrapf(err, "key %q dropped", key))
		return
	}
	ln.AddKey(key)
	ln.AppendBytes(ln.scratch.B)
}

func (l *Layer) composeExtension(ln *line, e *planEntry, span sjbase.SpanRef, hasSpan bool) {
	v, ok := l.lookupExtension(e.extKey, span, hasSpan)
	if !ok {
		return
	}
	var fv sjfields.FieldValue
	switch {
	case e.marshal != nil:
		fv, ok = e.marshal(v)
		if !ok {
			return
		}
	default:
		if already, isFV := v.(sjfields.FieldValue); isFV {
			fv = already
		} else {
			fv = sjfields.Any(v)
		}
	}
	ln.scratch.Reset()
	if err := fv.AppendTo(&ln.scratch); err != nil {
		l.report(errors.Wrapf(err, "extension %q dropped", e.key))
		return
	}
	enc := ln.scratch.B
	if e.flatten && len(enc) >= 2 && enc[0] == '{' && enc[len(enc)-1] == '}' {
		inner := enc[1 : len(enc)-1]
		if len(inner) == 0 {
			// flattening an empty object emits no keys at all
			return
		}
		ln.Comma()
		ln.AppendBytes(inner)
		return
	}
	ln.AddKey(e.key)
	ln.AppendBytes(enc)
}

func (l *Layer) lookupExtension(key *sjbase.ExtensionKey, span sjbase.SpanRef, hasSpan bool) (interface{}, bool) {
	if hasSpan {
		if v, ok := span.Extensions().Get(key); ok {
			return v, true
		}
	}
	if l.globalExt != nil {
		if v, ok := l.globalExt.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// writeSpanObject emits `{"name":...,<cached fields>}`. The name comes
// from the cache when the span recorded a field literally called
// "name", so the recorded value keeps its position and wins.
func (l *Layer) writeSpanObject(ln *line, span sjbase.SpanRef) {
	ln.AppendByte('{')
	cache := l.cacheOf(span)
	var body []byte
	hasName := false
	if cache != nil {
		body = cache.Snapshot()
		_, _, hasName = cache.ValueRange("name")
	} else {
		l.internalError(errors.Errorf("span %q has no field cache", span.Name()))
	}
	if !hasName {
		ln.AddSafeKey("name")
		ln.AddString(span.Name())
	}
	if len(body) > 0 {
		ln.Comma()
		ln.AppendBytes(body)
	}
	ln.AppendByte('}')
}

// composeEventFields merges the message and the event's own fields
// through a pooled cache so duplicate event field names get the same
// first-position/last-value treatment as span fields.
func (l *Layer) composeEventFields(ln *line, e *planEntry, ev sjbase.EventRef) {
	c := l.eventCache()
	defer l.cachePool.Put(c)
	if msg := ev.Message(); msg != "" {
		ln.one[0] = sjfields.F("message", sjfields.String(msg))
		_ = c.Record(ln.one[:])
	}
	ev.Fields(func(name string, v sjfields.FieldValue) bool {
		ln.one[0] = sjfields.F(name, v)
		if err := c.Record(ln.one[:]); err != nil {
			l.report(err)
		}
		return true
	})
	if e.flatten {
		if c.Len() > 0 {
			ln.Comma()
			ln.AppendBytes(c.Snapshot())
		}
		return
	}
	ln.AddSafeKey("fields")
	ln.AppendByte('{')
	ln.AppendBytes(c.Snapshot())
	ln.AppendByte('}')
}

func (l *Layer) line() *line {
	if v := l.linePool.Get(); v != nil {
		ln := v.(*line)
		ln.Reset()
		ln.scratch.Reset()
		ln.chain = ln.chain[:0]
		return ln
	}
	return &line{
		layer:   l,
		Builder: sjutil.Builder{B: make([]byte, 0, minBuffer)},
	}
}

func (l *Layer) eventCache() *sjfields.Cache {
	if v := l.cachePool.Get(); v != nil {
		c := v.(*sjfields.Cache)
		c.Reset()
		return c
	}
	c, _ := sjfields.New(nil)
	return c
}

// goroutineID parses the current goroutine's ID out of the runtime
// stack header; there is no cheaper supported way to get it.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := buf[:n]
	const prefix = "goroutine "
	if len(s) <= len(prefix) {
		return 0
	}
	s = s[len(prefix):]
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
