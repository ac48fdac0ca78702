// Package dragdrop carries typed drag payloads from drag start to drop.
//
// A payload is tagged so drop targets can recognize drags they understand and
// leave foreign drags to other handlers. The carried item is preserved by
// identity; the transport never copies or converts it.
package dragdrop

import "pkt.systems/tabsession/schema"

// Payload is a tagged drag payload carrying one item of type T.
type Payload[T any] struct {
	tag  schema.PayloadTag
	item T
	set  bool
}

// NewPayload wraps item under tag.
func NewPayload[T any](tag schema.PayloadTag, item T) Payload[T] {
	return Payload[T]{tag: tag, item: item, set: true}
}

// Foreign returns a payload that carries no item of type T, as produced by an
// unrelated drag source.
func Foreign[T any](tag schema.PayloadTag) Payload[T] {
	return Payload[T]{tag: tag}
}

// Tag reports the payload tag.
func (p Payload[T]) Tag() schema.PayloadTag {
	return p.tag
}

// Contains reports whether the payload carries an item under tag.
func (p Payload[T]) Contains(tag schema.PayloadTag) bool {
	return p.set && tag != "" && p.tag == tag
}

// Item returns the carried item when the payload matches tag.
func (p Payload[T]) Item(tag schema.PayloadTag) (T, bool) {
	if !p.Contains(tag) {
		var zero T
		return zero, false
	}
	return p.item, true
}
