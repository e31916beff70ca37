// Package spanjson renders structured trace telemetry into JSON
// documents, one per event, with field-level customization and without
// re-serializing unchanged data.
//
// The host instrumentation framework owns the span tree: it creates,
// enters, and closes spans, and notifies a Layer through SpanCreated,
// SpanRecorded, and Event. The Layer keeps each span's fields in an
// always-valid serialized form (sjfields.Cache) stored in the span's
// extension slot, so rendering an event is mostly splicing cached
// bytes: the current span's fragment under "span", the root-first
// ancestor chain under "spans", the event's own fields under "fields",
// plus whatever static, dynamic, or extension-typed entries the field
// plan was configured with.
//
// Composition holds no lock; only the final line write is serialized,
// and each written line is atomic from the sink's point of view.
package spanjson
