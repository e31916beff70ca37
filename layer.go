package spanjson

import (
	"github.com/pkg/errors"

	"github.com/spanjson/spanjson-go/sjbase"
	"github.com/spanjson/spanjson-go/sjfields"
)

// CacheKey is the extension slot where a span's field cache lives. It
// is exported so hosts can inspect or pre-populate the slot, but the
// cache inside belongs to the layer.
var CacheKey = sjbase.NewExtensionKey("spanjson.fields")

// SpanCreated reacts to the host's span-creation notification: it
// encodes the initial fields once and installs the cache in the span's
// extension slot. It never fails; unrepresentable values are dropped
// per-field and reported.
//
// The host guarantees exclusive access to this span's extensions for
// the duration of the call.
func (l *Layer) SpanCreated(span sjbase.SpanRef, fields ...sjfields.Field) {
	ext := span.Extensions()
	if _, ok := ext.Get(CacheKey); ok {
		l.internalError(errors.Errorf("span %q already has a field cache", span.Name()))
		return
	}
	cache, err := sjfields.New(fields)
	if err != nil {
		l.report(err)
	}
	ext.Set(CacheKey, cache)
}

// SpanRecorded merges newly recorded fields into the span's cache. A
// field seen before keeps its position and takes the new value; a new
// field is appended. Same exclusivity contract as SpanCreated.
func (l *Layer) SpanRecorded(span sjbase.SpanRef, fields ...sjfields.Field) {
	cache := l.cacheOf(span)
	if cache == nil {
		l.internalError(errors.Errorf("span %q has no field cache, creating one late", span.Name()))
		cache, _ = sjfields.New(nil)
		span.Extensions().Set(CacheKey, cache)
	}
	if err := cache.Record(fields); err != nil {
		l.report(err)
	}
}

func (l *Layer) cacheOf(span sjbase.SpanRef) *sjfields.Cache {
	v, ok := span.Extensions().Get(CacheKey)
	if !ok {
		return nil
	}
	cache, ok := v.(*sjfields.Cache)
	if !ok {
		return nil
	}
	return cache
}
