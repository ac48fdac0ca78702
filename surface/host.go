// Package surface is the default window host. It keeps the last rendered
// snapshot of every window and derives tab strip geometry from it, so drops
// resolve against what front-ends draw.
package surface

import (
	"fmt"
	"sort"
	"sync"

	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/internal/strip"
	"pkt.systems/tabsession/schema"
)

// Host implements core.WindowHost.
type Host struct {
	maxWidth int

	mu      sync.Mutex
	windows map[schema.WindowID]*Window
	seq     uint64
}

// NewHost returns a host laying out labels up to maxWidth cells.
func NewHost(maxWidth int) *Host {
	return &Host{maxWidth: maxWidth, windows: make(map[schema.WindowID]*Window)}
}

// Window is the rendered state of one window.
type Window struct {
	host  *Host
	seq   uint64
	mu    sync.Mutex
	snap  schema.WindowSnapshot
	shown bool
	gone  bool
}

// CreateWindow implements core.WindowHost.
func (h *Host) CreateWindow(initial schema.WindowSnapshot) (core.WindowHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[initial.ID]; ok {
		return nil, fmt.Errorf("window %s already hosted", initial.ID)
	}
	h.seq++
	w := &Window{host: h, seq: h.seq, snap: initial}
	h.windows[initial.ID] = w
	return w, nil
}

// ShowWindow implements core.WindowHost.
func (h *Host) ShowWindow(handle core.WindowHandle) {
	if w, ok := handle.(*Window); ok {
		w.mu.Lock()
		w.shown = true
		w.mu.Unlock()
	}
}

// CloseWindow implements core.WindowHost.
func (h *Host) CloseWindow(handle core.WindowHandle) {
	w, ok := handle.(*Window)
	if !ok {
		return
	}
	w.mu.Lock()
	w.gone = true
	id := w.snap.ID
	w.mu.Unlock()
	h.mu.Lock()
	delete(h.windows, id)
	h.mu.Unlock()
}

// Window returns the hosted window with id.
func (h *Host) Window(id schema.WindowID) (*Window, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	return w, ok
}

// Visible returns the shown windows in creation order.
func (h *Host) Visible() []schema.WindowSnapshot {
	h.mu.Lock()
	windows := make([]*Window, 0, len(h.windows))
	for _, w := range h.windows {
		windows = append(windows, w)
	}
	h.mu.Unlock()
	sort.Slice(windows, func(i, j int) bool { return windows[i].seq < windows[j].seq })
	out := make([]schema.WindowSnapshot, 0, len(windows))
	for _, w := range windows {
		if snap, shown := w.state(); shown {
			out = append(out, snap)
		}
	}
	return out
}

// MaxLabelWidth returns the label truncation width.
func (h *Host) MaxLabelWidth() int {
	return h.maxWidth
}

// Render implements core.WindowHandle.
func (w *Window) Render(snap schema.WindowSnapshot) {
	w.mu.Lock()
	if !w.gone {
		w.snap = snap
	}
	w.mu.Unlock()
}

// TabBounds implements core.WindowHandle.
func (w *Window) TabBounds() []schema.Bounds {
	w.mu.Lock()
	headers := w.snap.Headers()
	w.mu.Unlock()
	return strip.Layout(headers, w.host.maxWidth)
}

func (w *Window) state() (schema.WindowSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap, w.shown && !w.gone
}

var _ core.WindowHost = (*Host)(nil)
