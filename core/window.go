package core

import (
	"sync/atomic"

	"pkt.systems/tabsession/schema"
)

// window owns one tab collection and the loop that mutates it. Fields other
// than id, seq, loop, and snap belong to the loop.
type window struct {
	id     schema.WindowID
	seq    uint64
	tabs   *TabCollection
	loop   *loop
	handle WindowHandle
	state  schema.WindowState
	shown  bool
	snap   atomic.Pointer[schema.WindowSnapshot]
}

func newWindow(id schema.WindowID, seq uint64, depth int) *window {
	return &window{
		id:    id,
		seq:   seq,
		loop:  newLoop(depth),
		state: schema.WindowOpen,
	}
}

func (w *window) open() bool {
	return w.state == schema.WindowOpen
}

// capture builds and stores a snapshot of the loop-owned state.
func (w *window) capture() schema.WindowSnapshot {
	items := w.tabs.Items()
	selected := w.tabs.Selected()
	snap := schema.WindowSnapshot{
		ID:    w.id,
		State: w.state,
		Tabs:  make([]schema.TabSnapshot, 0, len(items)),
		Shown: w.shown,
	}
	for _, item := range items {
		snap.Tabs = append(snap.Tabs, item.Snapshot(item == selected))
	}
	if selected != nil {
		snap.Selected = selected.ID()
	}
	w.snap.Store(&snap)
	return snap
}

// snapshot returns the last stored snapshot. Safe from any goroutine.
func (w *window) snapshot() schema.WindowSnapshot {
	if snap := w.snap.Load(); snap != nil {
		return *snap
	}
	return schema.WindowSnapshot{ID: w.id, State: schema.WindowOpen}
}
