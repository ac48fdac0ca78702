package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/tabsession/dragdrop"
	"pkt.systems/tabsession/internal/sessionprefs"
	"pkt.systems/tabsession/schema"
)

func TestOpenWindowStartsWithSelectedTab(t *testing.T) {
	s := newTestSession(t)
	resp, err := s.ctrl.OpenWindow(context.Background(), schema.OpenWindowRequest{})
	if err != nil {
		t.Fatalf("open window: %v", err)
	}
	if len(resp.Window.Tabs) != 1 || resp.Window.Selected != resp.Tab.ID {
		t.Fatalf("expected one selected tab, got %+v", resp.Window)
	}
	if resp.Tab.Header != schema.DefaultTabHeader {
		t.Fatalf("expected default header, got %q", resp.Tab.Header)
	}
	if !resp.Window.Shown || resp.Window.State != schema.WindowOpen {
		t.Fatalf("expected shown open window, got %+v", resp.Window)
	}
	if !s.host.handle(resp.Window.ID).shown {
		t.Fatalf("expected host to show the window")
	}
	if s.sink.count(schema.WindowEventOpened, resp.Window.ID) != 1 {
		t.Fatalf("expected one opened event")
	}
}

func TestListWindowsInCreationOrder(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "A")
	b := s.openWith(t, "B")
	list := s.windows(t)
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("unexpected window order: %+v", list)
	}
}

func TestCloseLastTabClosesWindowOnce(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "Home", "Docs")
	resp, err := s.ctrl.CloseTab(ctx, schema.CloseTabRequest{WindowID: a.ID, TabID: a.Tabs[1].ID})
	if err != nil {
		t.Fatalf("close docs: %v", err)
	}
	if !resp.Closed || resp.WindowClosed {
		t.Fatalf("expected tab closed without window close, got %+v", resp)
	}
	if s.host.handle(a.ID).closedCount() != 0 {
		t.Fatalf("did not expect window close with tabs left")
	}
	resp, err = s.ctrl.CloseTab(ctx, schema.CloseTabRequest{WindowID: a.ID, TabID: a.Tabs[0].ID})
	if err != nil {
		t.Fatalf("close home: %v", err)
	}
	if !resp.WindowClosed || resp.Window.State != schema.WindowClosed {
		t.Fatalf("expected window closed, got %+v", resp)
	}
	if got := s.host.handle(a.ID).closedCount(); got != 1 {
		t.Fatalf("expected exactly one host close, got %d", got)
	}
	if s.sink.count(schema.WindowEventClosed, a.ID) != 1 {
		t.Fatalf("expected one closed event")
	}
	if _, err := s.ctrl.GetWindow(ctx, schema.GetWindowRequest{WindowID: a.ID}); !errors.Is(err, schema.ErrWindowNotFound) {
		t.Fatalf("expected closed window to leave the registry, got %v", err)
	}
}

func TestCloseTabIgnoresPinned(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "Home")
	pinned, err := s.ctrl.NewTab(ctx, schema.NewTabRequest{WindowID: a.ID, Header: "Pinned", Pinned: true})
	if err != nil {
		t.Fatalf("new tab: %v", err)
	}
	resp, err := s.ctrl.CloseTab(ctx, schema.CloseTabRequest{WindowID: a.ID, TabID: pinned.Tab.ID})
	if err != nil {
		t.Fatalf("close pinned: %v", err)
	}
	if resp.Closed || len(resp.Window.Tabs) != 2 {
		t.Fatalf("expected pinned tab to stay, got %+v", resp)
	}
}

func TestCloseWindowClosesAllTabs(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "A", "B", "C")
	resp, err := s.ctrl.CloseWindow(context.Background(), schema.CloseWindowRequest{WindowID: a.ID})
	if err != nil {
		t.Fatalf("close window: %v", err)
	}
	if resp.Window.State != schema.WindowClosed || len(resp.Window.Tabs) != 0 {
		t.Fatalf("expected closed empty window, got %+v", resp.Window)
	}
	if got := s.host.handle(a.ID).closedCount(); got != 1 {
		t.Fatalf("expected one host close, got %d", got)
	}
	if _, err := s.ctrl.CloseWindow(context.Background(), schema.CloseWindowRequest{WindowID: a.ID}); !errors.Is(err, schema.ErrWindowNotFound) {
		t.Fatalf("expected second close to miss, got %v", err)
	}
}

func TestSelectAndRenameTab(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A", "B")
	sel, err := s.ctrl.SelectTab(ctx, schema.SelectTabRequest{WindowID: a.ID, TabID: a.Tabs[1].ID})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Window.Selected != a.Tabs[1].ID {
		t.Fatalf("expected B selected")
	}
	renamed, err := s.ctrl.RenameTab(ctx, schema.RenameTabRequest{WindowID: a.ID, TabID: a.Tabs[1].ID, Header: "  Bee "})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Tab.Header != "Bee" || !renamed.Tab.Selected {
		t.Fatalf("unexpected renamed tab %+v", renamed.Tab)
	}
	if _, err := s.ctrl.SelectTab(ctx, schema.SelectTabRequest{WindowID: a.ID, TabID: "missing"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("expected tab not found, got %v", err)
	}
	if _, err := s.ctrl.RenameTab(ctx, schema.RenameTabRequest{WindowID: a.ID, TabID: a.Tabs[0].ID, Header: "   "}); !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("expected invalid header, got %v", err)
	}
}

func TestDetachSoleTabIsNoop(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "Only")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[0].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	resp, err := s.ctrl.DropOutside(ctx, drag.Payload())
	if err != nil {
		t.Fatalf("drop outside: %v", err)
	}
	if resp.Detached {
		t.Fatalf("did not expect sole tab to detach")
	}
	if s.host.createdCount() != 1 || len(s.windows(t)) != 1 {
		t.Fatalf("expected no new window")
	}
	after := s.window(t, a.ID)
	if !equalStrings(headers(after), []string{"Only"}) || after.Selected != a.Tabs[0].ID {
		t.Fatalf("expected window unchanged, got %+v", after)
	}
}

func TestDetachToNewWindow(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "X", "Y")
	y := a.Tabs[1].ID
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, y)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	resp, err := s.ctrl.DropOutside(ctx, drag.Payload())
	if err != nil {
		t.Fatalf("drop outside: %v", err)
	}
	if !resp.Detached {
		t.Fatalf("expected detach")
	}
	b := resp.Window
	if b.ID == a.ID || len(b.Tabs) != 1 || b.Tabs[0].ID != y || b.Selected != y || !b.Shown {
		t.Fatalf("expected new shown window holding Y, got %+v", b)
	}
	left := s.window(t, a.ID)
	if !equalStrings(headers(left), []string{"X"}) || left.State != schema.WindowOpen {
		t.Fatalf("expected A to hold [X] and stay open, got %+v", left)
	}
	if s.host.handle(a.ID).closedCount() != 0 {
		t.Fatalf("did not expect A to close")
	}
}

func TestCrossWindowMoveLandsInDestinationOnly(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A1", "A2")
	b := s.openWith(t, "B1", "B2", "B3")
	moving := a.Tabs[1].ID
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, moving)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	// Pointer inside B's second container.
	resp, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: b.ID, X: fakeTabWidth + 5})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !resp.Handled || resp.Index != 1 || resp.SourceClosed {
		t.Fatalf("unexpected drop response %+v", resp)
	}
	gotA := s.window(t, a.ID)
	gotB := s.window(t, b.ID)
	if gotA.IndexOf(moving) != -1 {
		t.Fatalf("expected tab to leave the source")
	}
	if gotB.IndexOf(moving) != 1 || gotB.Selected != moving {
		t.Fatalf("expected tab selected at index 1 in destination, got %+v", gotB)
	}
	if !equalStrings(headers(gotB), []string{"B1", "A2", "B2", "B3"}) {
		t.Fatalf("unexpected destination order %v", headers(gotB))
	}
	if body := gotB.Tabs[1].Body; body == "" {
		t.Fatalf("expected content to travel with the tab")
	}
}

func TestCrossWindowMoveOfSoleTabClosesSource(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A1")
	b := s.openWith(t, "B1")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[0].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	resp, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: b.ID, X: 500})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !resp.SourceClosed || resp.Index != 1 {
		t.Fatalf("expected append and source close, got %+v", resp)
	}
	if got := s.host.handle(a.ID).closedCount(); got != 1 {
		t.Fatalf("expected exactly one source close, got %d", got)
	}
	if s.sink.count(schema.WindowEventClosed, a.ID) != 1 {
		t.Fatalf("expected one closed event for source")
	}
	if !equalStrings(headers(s.window(t, b.ID)), []string{"B1", "A1"}) {
		t.Fatalf("unexpected destination tabs")
	}
}

func TestSameWindowDropReorders(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A", "B", "C")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[2].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	resp, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: a.ID, X: 10})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !resp.Handled || resp.Index != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	got := s.window(t, a.ID)
	if !equalStrings(headers(got), []string{"C", "A", "B"}) || got.Selected != a.Tabs[2].ID {
		t.Fatalf("unexpected order %v", headers(got))
	}
	if s.host.createdCount() != 1 {
		t.Fatalf("did not expect new windows")
	}
}

func TestForeignPayloadIsNotHandled(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "A", "B")
	resp, err := s.ctrl.Drop(context.Background(), dragdrop.Foreign[*DragSession]("files"), schema.DropRequest{WindowID: a.ID})
	if err != nil || resp.Handled {
		t.Fatalf("expected unhandled foreign drop, got %+v %v", resp, err)
	}
	other := &DragSession{source: a.ID, tag: "other.app"}
	resp, err = s.ctrl.Drop(context.Background(), other.Payload(), schema.DropRequest{WindowID: a.ID})
	if err != nil || resp.Handled {
		t.Fatalf("expected unhandled drop for other tag, got %+v %v", resp, err)
	}
}

func TestDragEndsOnce(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A", "B")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[1].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if _, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: a.ID, X: 0}); err != nil {
		t.Fatalf("first drop: %v", err)
	}
	if _, err := s.ctrl.DropOutside(ctx, drag.Payload()); !errors.Is(err, schema.ErrDragEnded) {
		t.Fatalf("expected drag ended, got %v", err)
	}
}

func TestCancelledDragMutatesNothing(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A", "B")
	b := s.openWith(t, "C")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[0].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	drag.Cancel()
	if _, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: b.ID}); !errors.Is(err, schema.ErrDragEnded) {
		t.Fatalf("expected cancelled drag to be refused, got %v", err)
	}
	if len(s.window(t, a.ID).Tabs) != 2 || len(s.window(t, b.ID).Tabs) != 1 {
		t.Fatalf("expected no mutation")
	}
}

func TestHandoffCancelledWhenSourceClosed(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A1", "A2")
	b := s.openWith(t, "B1")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[0].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if _, err := s.ctrl.CloseWindow(ctx, schema.CloseWindowRequest{WindowID: a.ID}); err != nil {
		t.Fatalf("close source: %v", err)
	}
	resp, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: b.ID})
	if !errors.Is(err, schema.ErrHandoffCancelled) {
		t.Fatalf("expected handoff cancelled, got %v", err)
	}
	if !resp.Handled {
		t.Fatalf("expected the drop to be consumed")
	}
	if !equalStrings(headers(s.window(t, b.ID)), []string{"B1"}) {
		t.Fatalf("expected destination untouched")
	}
}

func TestHandoffCancelledWhenTabAlreadyGone(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A1", "A2")
	b := s.openWith(t, "B1")
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, a.Tabs[1].ID)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if _, err := s.ctrl.CloseTab(ctx, schema.CloseTabRequest{WindowID: a.ID, TabID: a.Tabs[1].ID}); err != nil {
		t.Fatalf("close tab: %v", err)
	}
	if _, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: b.ID}); !errors.Is(err, schema.ErrHandoffCancelled) {
		t.Fatalf("expected handoff cancelled, got %v", err)
	}
	if len(s.window(t, b.ID).Tabs) != 1 || len(s.window(t, a.ID).Tabs) != 1 {
		t.Fatalf("expected no further mutation")
	}
}

func TestHandoffRestoresWhenDestinationCloses(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "A1", "A2", "A3")
	b := s.openWith(t, "B1")
	moving := a.Tabs[1].ID
	drag, err := s.ctrl.BeginDrag(ctx, a.ID, moving)
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}

	src, err := s.ctrl.lookup(a.ID)
	if err != nil {
		t.Fatalf("lookup source: %v", err)
	}
	gate := make(chan struct{})
	src.loop.post(func() { <-gate })

	dstHandle := s.host.handle(b.ID)
	dstHandle.mu.Lock()
	dstHandle.bounds = make(chan struct{}, 1)
	signal := dstHandle.bounds
	dstHandle.mu.Unlock()

	type result struct {
		resp schema.DropResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.ctrl.Drop(ctx, drag.Payload(), schema.DropRequest{WindowID: b.ID})
		done <- result{resp, err}
	}()

	select {
	case <-signal:
	case <-time.After(2 * time.Second):
		t.Fatalf("destination never resolved the drop index")
	}
	if _, err := s.ctrl.CloseWindow(ctx, schema.CloseWindowRequest{WindowID: b.ID}); err != nil {
		t.Fatalf("close destination: %v", err)
	}
	close(gate)

	var got result
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("drop never completed")
	}
	if !errors.Is(got.err, schema.ErrHandoffCancelled) || !got.resp.Handled {
		t.Fatalf("expected handled cancellation, got %+v %v", got.resp, got.err)
	}
	restored := s.window(t, a.ID)
	if restored.IndexOf(moving) != 1 {
		t.Fatalf("expected tab restored at its original index, got %v", headers(restored))
	}
}

func TestShortcutUsesFocusedWindow(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "A")
	prefs := sessionprefs.New()
	ctx := sessionprefs.WithContext(context.Background(), prefs)

	if _, err := s.ctrl.HandleShortcut(ctx, schema.ShortcutRequest{Chord: "ctrl+t"}); !errors.Is(err, schema.ErrNoFocusedWindow) {
		t.Fatalf("expected no focused window, got %v", err)
	}
	prefs.SetFocusedWindow(a.ID)
	resp, err := s.ctrl.HandleShortcut(ctx, schema.ShortcutRequest{Chord: "ctrl+t"})
	if err != nil {
		t.Fatalf("shortcut: %v", err)
	}
	if !resp.Handled || resp.Action != schema.ActionNewTab || len(resp.Window.Tabs) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Window.Selected != resp.Window.Tabs[1].ID {
		t.Fatalf("expected new tab selected")
	}
}

func TestCloseChordScenario(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	a := s.openWith(t, "Home", "Docs", "Settings")
	if _, err := s.ctrl.SelectTab(ctx, schema.SelectTabRequest{WindowID: a.ID, TabID: a.Tabs[1].ID}); err != nil {
		t.Fatalf("select docs: %v", err)
	}
	resp, err := s.ctrl.HandleShortcut(ctx, schema.ShortcutRequest{WindowID: a.ID, Chord: "ctrl+w"})
	if err != nil {
		t.Fatalf("shortcut: %v", err)
	}
	if !resp.Handled || !equalStrings(headers(resp.Window), []string{"Home", "Settings"}) {
		t.Fatalf("expected [Home, Settings], got %+v", resp)
	}
	if s.host.handle(a.ID).closedCount() != 0 {
		t.Fatalf("did not expect a window close")
	}
}

func TestCloseChordOnLastTabClosesWindow(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "Home")
	resp, err := s.ctrl.HandleShortcut(context.Background(), schema.ShortcutRequest{WindowID: a.ID, Chord: "ctrl+w"})
	if err != nil {
		t.Fatalf("shortcut: %v", err)
	}
	if resp.Window.State != schema.WindowClosed {
		t.Fatalf("expected window closed, got %+v", resp.Window)
	}
	if got := s.host.handle(a.ID).closedCount(); got != 1 {
		t.Fatalf("expected one close, got %d", got)
	}
}

func TestUnboundShortcutNotHandled(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "Home")
	resp, err := s.ctrl.HandleShortcut(context.Background(), schema.ShortcutRequest{WindowID: a.ID, Chord: "ctrl+q"})
	if err != nil || resp.Handled {
		t.Fatalf("expected unhandled chord, got %+v %v", resp, err)
	}
}

func TestControllerCloseClosesEveryWindow(t *testing.T) {
	s := newTestSession(t)
	a := s.openWith(t, "A")
	b := s.openWith(t, "B", "C")
	if err := s.ctrl.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(s.windows(t)) != 0 {
		t.Fatalf("expected no windows left")
	}
	if s.host.handle(a.ID).closedCount() != 1 || s.host.handle(b.ID).closedCount() != 1 {
		t.Fatalf("expected every window closed once")
	}
	if _, err := s.ctrl.OpenWindow(context.Background(), schema.OpenWindowRequest{}); !errors.Is(err, schema.ErrControllerClosed) {
		t.Fatalf("expected controller closed, got %v", err)
	}
}

func TestCloseWaitsForWindowBeingOpened(t *testing.T) {
	host := &gatedHost{fakeHost: newFakeHost(), entered: make(chan struct{}, 1), gate: make(chan struct{})}
	ctrl, err := NewController(schema.SessionConfig{}, ControllerDeps{Host: host})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	ctx := context.Background()

	type openResult struct {
		resp schema.OpenWindowResponse
		err  error
	}
	opened := make(chan openResult, 1)
	go func() {
		resp, err := ctrl.OpenWindow(ctx, schema.OpenWindowRequest{Header: "Late"})
		opened <- openResult{resp, err}
	}()
	<-host.entered

	closed := make(chan error, 1)
	go func() { closed <- ctrl.Close(ctx) }()
	select {
	case err := <-closed:
		t.Fatalf("close returned before the window open finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(host.gate)

	res := <-opened
	if res.err != nil {
		t.Fatalf("open window: %v", res.err)
	}
	if err := <-closed; err != nil {
		t.Fatalf("close: %v", err)
	}
	list, _ := ctrl.ListWindows(ctx, schema.ListWindowsRequest{})
	if len(list.Windows) != 0 {
		t.Fatalf("expected no windows after close, got %d", len(list.Windows))
	}
	if host.handle(res.resp.Window.ID).closedCount() != 1 {
		t.Fatalf("expected the late window to be closed once")
	}
	if _, err := ctrl.OpenWindow(ctx, schema.OpenWindowRequest{}); !errors.Is(err, schema.ErrControllerClosed) {
		t.Fatalf("expected controller closed, got %v", err)
	}
}

func TestOpenWindowWithPinnedTab(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	resp, err := s.ctrl.OpenWindow(ctx, schema.OpenWindowRequest{Header: "Pinned", Pinned: true})
	if err != nil {
		t.Fatalf("open window: %v", err)
	}
	if resp.Tab.Closable {
		t.Fatalf("expected pinned initial tab")
	}
	closeResp, err := s.ctrl.CloseTab(ctx, schema.CloseTabRequest{WindowID: resp.Window.ID, TabID: resp.Tab.ID})
	if err != nil {
		t.Fatalf("close tab: %v", err)
	}
	if closeResp.Closed || closeResp.WindowClosed {
		t.Fatalf("expected pinned tab to stay, got %+v", closeResp)
	}
}
