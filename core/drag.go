package core

import (
	"sync/atomic"

	"pkt.systems/tabsession/dragdrop"
	"pkt.systems/tabsession/schema"
)

// DragSession is one in-flight tab drag. It ends exactly once: on a drop, a
// drop outside every strip, or Cancel. Ending without a drop mutates nothing.
type DragSession struct {
	source schema.WindowID
	record *TabRecord
	tag    schema.PayloadTag
	ended  atomic.Bool
}

// Source returns the window the drag started in.
func (d *DragSession) Source() schema.WindowID { return d.source }

// Payload wraps the session for the drag/drop transport.
func (d *DragSession) Payload() dragdrop.Payload[*DragSession] {
	return dragdrop.NewPayload(d.tag, d)
}

// Cancel abandons the drag. No collection is touched.
func (d *DragSession) Cancel() {
	d.ended.Store(true)
}

// Ended reports whether the drag has already been consumed or cancelled.
func (d *DragSession) Ended() bool {
	return d.ended.Load()
}

func (d *DragSession) finish() bool {
	return d.ended.CompareAndSwap(false, true)
}
