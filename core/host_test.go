package core

import (
	"context"
	"sync"
	"testing"

	"pkt.systems/tabsession/schema"
)

const fakeTabWidth = 40

type fakeHandle struct {
	mu     sync.Mutex
	snap   schema.WindowSnapshot
	shown  bool
	closed int
	// bounds, when set, is signalled each time the strip layout is read.
	bounds chan struct{}
}

func (h *fakeHandle) Render(snap schema.WindowSnapshot) {
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
}

func (h *fakeHandle) TabBounds() []schema.Bounds {
	h.mu.Lock()
	out := make([]schema.Bounds, len(h.snap.Tabs))
	for i := range out {
		out[i] = schema.Bounds{X: i * fakeTabWidth, Width: fakeTabWidth}
	}
	signal := h.bounds
	h.mu.Unlock()
	if signal != nil {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
	return out
}

func (h *fakeHandle) closedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type fakeHost struct {
	mu      sync.Mutex
	handles map[schema.WindowID]*fakeHandle
	created int
}

func newFakeHost() *fakeHost {
	return &fakeHost{handles: make(map[schema.WindowID]*fakeHandle)}
}

func (h *fakeHost) CreateWindow(initial schema.WindowSnapshot) (WindowHandle, error) {
	handle := &fakeHandle{snap: initial}
	h.mu.Lock()
	h.handles[initial.ID] = handle
	h.created++
	h.mu.Unlock()
	return handle, nil
}

func (h *fakeHost) ShowWindow(handle WindowHandle) {
	fh := handle.(*fakeHandle)
	fh.mu.Lock()
	fh.shown = true
	fh.mu.Unlock()
}

func (h *fakeHost) CloseWindow(handle WindowHandle) {
	fh := handle.(*fakeHandle)
	fh.mu.Lock()
	fh.closed++
	fh.mu.Unlock()
}

func (h *fakeHost) handle(id schema.WindowID) *fakeHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handles[id]
}

func (h *fakeHost) createdCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.WindowEvent
}

func (s *recordingSink) OnWindowEvent(event schema.WindowEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) count(kind schema.WindowEventType, window schema.WindowID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, event := range s.events {
		if event.Type == kind && event.Window.ID == window {
			n++
		}
	}
	return n
}

type testSession struct {
	ctrl *Controller
	host *fakeHost
	sink *recordingSink
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()
	host := newFakeHost()
	sink := &recordingSink{}
	ctrl, err := NewController(schema.SessionConfig{}, ControllerDeps{Host: host, EventSink: sink})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })
	return &testSession{ctrl: ctrl, host: host, sink: sink}
}

// openWith opens a window whose tabs carry the given headers, first selected.
func (s *testSession) openWith(t *testing.T, headers ...schema.TabHeader) schema.WindowSnapshot {
	t.Helper()
	ctx := context.Background()
	resp, err := s.ctrl.OpenWindow(ctx, schema.OpenWindowRequest{Header: headers[0]})
	if err != nil {
		t.Fatalf("open window: %v", err)
	}
	for _, header := range headers[1:] {
		if _, err := s.ctrl.NewTab(ctx, schema.NewTabRequest{WindowID: resp.Window.ID, Header: header}); err != nil {
			t.Fatalf("new tab %s: %v", header, err)
		}
	}
	return s.window(t, resp.Window.ID)
}

func (s *testSession) window(t *testing.T, id schema.WindowID) schema.WindowSnapshot {
	t.Helper()
	resp, err := s.ctrl.GetWindow(context.Background(), schema.GetWindowRequest{WindowID: id})
	if err != nil {
		t.Fatalf("get window %s: %v", id, err)
	}
	return resp.Window
}

func (s *testSession) windows(t *testing.T) []schema.WindowSnapshot {
	t.Helper()
	resp, err := s.ctrl.ListWindows(context.Background(), schema.ListWindowsRequest{})
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	return resp.Windows
}

func headers(snap schema.WindowSnapshot) []string {
	out := make([]string, 0, len(snap.Tabs))
	for _, tab := range snap.Tabs {
		out = append(out, string(tab.Header))
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// gatedHost holds CreateWindow until the gate is closed.
type gatedHost struct {
	*fakeHost
	entered chan struct{}
	gate    chan struct{}
}

func (h *gatedHost) CreateWindow(initial schema.WindowSnapshot) (WindowHandle, error) {
	h.entered <- struct{}{}
	<-h.gate
	return h.fakeHost.CreateWindow(initial)
}
