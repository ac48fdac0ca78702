package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/internal/sessionprefs"
	"pkt.systems/tabsession/schema"
)

// Controller owns every window of a session, keyed by id. Each window's
// collection is mutated only on that window's loop; the controller itself
// only guards the registry.
type Controller struct {
	cfg    schema.SessionConfig
	host   WindowHost
	sink   EventSink
	keys   ShortcutDispatcher
	logger pslog.Logger

	mu       sync.Mutex
	windows  map[schema.WindowID]*window
	seq      uint64
	closed   bool
	inflight sync.WaitGroup
}

// NewController constructs a controller with no windows.
func NewController(cfg schema.SessionConfig, deps ControllerDeps) (*Controller, error) {
	normalized, err := schema.NormalizeSessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	keys, err := NewShortcutDispatcher(normalized.Keys)
	if err != nil {
		return nil, err
	}
	if deps.Host == nil {
		deps.Host = nopHost{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Controller{
		cfg:     normalized,
		host:    deps.Host,
		sink:    deps.EventSink,
		keys:    keys,
		logger:  logger,
		windows: make(map[schema.WindowID]*window),
	}, nil
}

// PayloadTag returns the tag carried by drags of this session.
func (c *Controller) PayloadTag() schema.PayloadTag {
	return c.cfg.PayloadTag
}

// Shortcuts returns the configured chord dispatcher.
func (c *Controller) Shortcuts() ShortcutDispatcher {
	return c.keys
}

// OpenWindow opens a window holding one fresh tab.
func (c *Controller) OpenWindow(ctx context.Context, req schema.OpenWindowRequest) (schema.OpenWindowResponse, error) {
	if ctx == nil {
		return schema.OpenWindowResponse{}, errors.New("missing context")
	}
	header, err := c.header(req.Header)
	if err != nil {
		return schema.OpenWindowResponse{}, err
	}
	done, err := c.track()
	if err != nil {
		return schema.OpenWindowResponse{}, err
	}
	defer done()
	record := c.newRecord(header, !req.Pinned)
	snap, err := c.openWindowWith(ctx, record)
	if err != nil {
		return schema.OpenWindowResponse{}, err
	}
	return schema.OpenWindowResponse{Window: snap, Tab: record.Snapshot(true)}, nil
}

// CloseWindow closes every tab of a window, which closes the window.
func (c *Controller) CloseWindow(ctx context.Context, req schema.CloseWindowRequest) (schema.CloseWindowResponse, error) {
	w, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.CloseWindowResponse{}, err
	}
	var snap schema.WindowSnapshot
	err = w.loop.call(ctx, func() {
		c.closeAll(w)
		snap = w.capture()
	})
	if err != nil {
		return schema.CloseWindowResponse{}, err
	}
	return schema.CloseWindowResponse{Window: snap}, nil
}

// ListWindows returns the open windows in creation order.
func (c *Controller) ListWindows(ctx context.Context, req schema.ListWindowsRequest) (schema.ListWindowsResponse, error) {
	c.mu.Lock()
	windows := make([]*window, 0, len(c.windows))
	for _, w := range c.windows {
		windows = append(windows, w)
	}
	c.mu.Unlock()
	sort.Slice(windows, func(i, j int) bool { return windows[i].seq < windows[j].seq })
	resp := schema.ListWindowsResponse{Windows: make([]schema.WindowSnapshot, 0, len(windows))}
	for _, w := range windows {
		resp.Windows = append(resp.Windows, w.snapshot())
	}
	return resp, nil
}

// GetWindow returns one window's latest snapshot.
func (c *Controller) GetWindow(ctx context.Context, req schema.GetWindowRequest) (schema.GetWindowResponse, error) {
	w, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.GetWindowResponse{}, err
	}
	return schema.GetWindowResponse{Window: w.snapshot()}, nil
}

// NewTab appends a tab to a window.
func (c *Controller) NewTab(ctx context.Context, req schema.NewTabRequest) (schema.NewTabResponse, error) {
	w, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.NewTabResponse{}, err
	}
	header, err := c.header(req.Header)
	if err != nil {
		return schema.NewTabResponse{}, err
	}
	record := c.newRecord(header, !req.Pinned)
	var resp schema.NewTabResponse
	var addErr error
	err = w.loop.call(ctx, func() {
		if !w.open() {
			addErr = schema.ErrWindowClosed
			return
		}
		if addErr = w.tabs.Add(record, req.Select); addErr != nil {
			return
		}
		resp.Window = c.publish(w, record.ID())
		resp.Tab = record.Snapshot(w.tabs.Selected() == record)
	})
	if err == nil {
		err = addErr
	}
	if err != nil {
		return schema.NewTabResponse{}, err
	}
	c.logger.With("window", w.id).Info("tab created", "tab", record.ID(), "header", header)
	return resp, nil
}

// CloseTab honours a user close request. Non-closable tabs are left in place
// and reported with Closed=false.
func (c *Controller) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	w, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.CloseTabResponse{}, err
	}
	var resp schema.CloseTabResponse
	var opErr error
	err = w.loop.call(ctx, func() {
		if !w.open() {
			opErr = schema.ErrWindowClosed
			return
		}
		record := w.tabs.Find(req.TabID)
		if record == nil {
			opErr = fmt.Errorf("%s: %w", req.TabID, schema.ErrTabNotFound)
			return
		}
		if !record.Closable() {
			resp.Window = w.capture()
			return
		}
		resp.Closed = w.tabs.Remove(record)
		resp.WindowClosed = !w.open()
		resp.Window = c.publish(w, record.ID())
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return schema.CloseTabResponse{}, err
	}
	log := c.logger.With("window", w.id).With("tab", req.TabID)
	if !resp.Closed {
		log.Debug("tab close ignored", "reason", "not closable")
	} else {
		log.Info("tab closed", "window_closed", resp.WindowClosed)
	}
	return resp, nil
}

// SelectTab makes a tab the selection of its window.
func (c *Controller) SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	w, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.SelectTabResponse{}, err
	}
	var resp schema.SelectTabResponse
	var opErr error
	err = w.loop.call(ctx, func() {
		if !w.open() {
			opErr = schema.ErrWindowClosed
			return
		}
		if !w.tabs.Select(req.TabID) {
			opErr = fmt.Errorf("%s: %w", req.TabID, schema.ErrTabNotFound)
			return
		}
		resp.Window = c.publish(w, req.TabID)
	})
	if err == nil {
		err = opErr
	}
	return resp, err
}

// RenameTab changes a tab's header.
func (c *Controller) RenameTab(ctx context.Context, req schema.RenameTabRequest) (schema.RenameTabResponse, error) {
	w, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.RenameTabResponse{}, err
	}
	header, err := schema.NormalizeTabHeader(string(req.Header))
	if err != nil {
		return schema.RenameTabResponse{}, err
	}
	var resp schema.RenameTabResponse
	var opErr error
	err = w.loop.call(ctx, func() {
		if !w.open() {
			opErr = schema.ErrWindowClosed
			return
		}
		if !w.tabs.SetHeader(req.TabID, header) {
			opErr = fmt.Errorf("%s: %w", req.TabID, schema.ErrTabNotFound)
			return
		}
		record := w.tabs.Find(req.TabID)
		resp.Tab = record.Snapshot(w.tabs.Selected() == record)
		c.publish(w, req.TabID)
	})
	if err == nil {
		err = opErr
	}
	return resp, err
}

// HandleShortcut dispatches a chord against a window's collection. An
// unaddressed request targets the session's focused window.
func (c *Controller) HandleShortcut(ctx context.Context, req schema.ShortcutRequest) (schema.ShortcutResponse, error) {
	windowID := req.WindowID
	if windowID == "" {
		windowID = sessionprefs.FromContext(ctx).FocusedWindow()
		if windowID == "" {
			return schema.ShortcutResponse{}, schema.ErrNoFocusedWindow
		}
	}
	chord, err := ParseChord(req.Chord)
	if err != nil {
		return schema.ShortcutResponse{}, err
	}
	if action, _ := c.keys.Resolve(chord); action == schema.ActionNone {
		return schema.ShortcutResponse{}, nil
	}
	w, err := c.lookup(windowID)
	if err != nil {
		return schema.ShortcutResponse{}, err
	}
	var resp schema.ShortcutResponse
	var opErr error
	err = w.loop.call(ctx, func() {
		if !w.open() {
			opErr = schema.ErrWindowClosed
			return
		}
		resp.Action, resp.Handled, opErr = c.keys.Dispatch(w.tabs, chord, func() *TabRecord {
			return c.newRecord(c.cfg.DefaultHeader, true)
		})
		resp.Window = c.publish(w, "")
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return schema.ShortcutResponse{}, err
	}
	c.logger.With("window", windowID).Debug("shortcut handled", "chord", chord.String(), "action", resp.Action)
	return resp, nil
}

// Close waits for in-flight drags, then closes every window.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	windows := make([]*window, 0, len(c.windows))
	for _, w := range c.windows {
		windows = append(windows, w)
	}
	c.mu.Unlock()
	var errs []error
	for _, w := range windows {
		err := w.loop.call(ctx, func() { c.closeAll(w) })
		if err != nil && !errors.Is(err, schema.ErrWindowClosed) {
			errs = append(errs, err)
		}
	}
	c.logger.Info("session closed", "windows", len(windows))
	return errors.Join(errs...)
}

// openWindowWith creates and shows a window whose sole tab is record. The
// record is selected before the window becomes visible.
func (c *Controller) openWindowWith(ctx context.Context, record *TabRecord) (schema.WindowSnapshot, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	w := newWindow(schema.WindowID(windowID(seq)), seq, c.cfg.QueueDepth)
	w.tabs = NewTabCollection(w.id, c.sizeFunc(w))
	note(record, "opened in "+string(w.id))
	if err := w.tabs.Add(record, true); err != nil {
		return schema.WindowSnapshot{}, err
	}
	handle, err := c.host.CreateWindow(w.capture())
	if err != nil {
		w.tabs.Detach(record.ID())
		return schema.WindowSnapshot{}, fmt.Errorf("create window: %w", err)
	}
	w.handle = handle
	c.register(w)
	w.loop.start()

	var snap schema.WindowSnapshot
	err = w.loop.call(context.WithoutCancel(ctx), func() {
		c.host.ShowWindow(handle)
		w.shown = true
		snap = w.capture()
		handle.Render(snap)
		c.emit(schema.WindowEventOpened, snap, record.ID())
	})
	if err != nil {
		return schema.WindowSnapshot{}, err
	}
	c.logger.With("window", w.id).Info("window open", "tab", record.ID())
	return snap, nil
}

// closeAll removes every tab; the last removal closes the window. Runs on
// w's loop.
func (c *Controller) closeAll(w *window) {
	for w.open() && w.tabs.Len() > 0 {
		w.tabs.Remove(w.tabs.At(w.tabs.Len() - 1))
	}
	if w.open() {
		c.retire(w)
	}
}

func (c *Controller) sizeFunc(w *window) SizeFunc {
	return func(_ *TabCollection, before, after int) {
		if before > 0 && after == 0 {
			c.retire(w)
		}
	}
}

// retire moves w through closing to closed. Runs on w's loop; idempotent.
func (c *Controller) retire(w *window) {
	if !w.open() {
		return
	}
	log := c.logger.With("window", w.id)
	w.state = schema.WindowClosing
	log.Debug("window closing")
	w.loop.stop()
	if w.handle != nil {
		c.host.CloseWindow(w.handle)
	}
	c.unregister(w.id)
	w.state = schema.WindowClosed
	c.emit(schema.WindowEventClosed, w.capture(), "")
	log.Info("window closed")
}

// publish stores, renders, and announces w after a mutation. Runs on w's loop.
func (c *Controller) publish(w *window, tab schema.TabID) schema.WindowSnapshot {
	if !w.open() {
		return w.snapshot()
	}
	snap := w.capture()
	if w.handle != nil {
		w.handle.Render(snap)
	}
	c.emit(schema.WindowEventChanged, snap, tab)
	return snap
}

func (c *Controller) emit(kind schema.WindowEventType, snap schema.WindowSnapshot, tab schema.TabID) {
	if c.sink == nil {
		return
	}
	c.sink.OnWindowEvent(schema.WindowEvent{Type: kind, Window: snap, Tab: tab})
}

func (c *Controller) lookup(id schema.WindowID) (*window, error) {
	if err := schema.ValidateWindowID(id); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, schema.ErrWindowNotFound)
	}
	return w, nil
}

func (c *Controller) register(w *window) {
	c.mu.Lock()
	c.windows[w.id] = w
	c.mu.Unlock()
}

func (c *Controller) unregister(id schema.WindowID) {
	c.mu.Lock()
	delete(c.windows, id)
	c.mu.Unlock()
}

// track counts a window-creating operation as in flight so Close waits for
// it and then closes the window it registered.
func (c *Controller) track() (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, schema.ErrControllerClosed
	}
	c.inflight.Add(1)
	return c.inflight.Done, nil
}

func (c *Controller) newRecord(header schema.TabHeader, closable bool) *TabRecord {
	return NewTabRecord(header, closable, NewLogContent(c.cfg.ContentLines, "created as "+string(header)))
}

func (c *Controller) header(raw schema.TabHeader) (schema.TabHeader, error) {
	if raw == "" {
		return c.cfg.DefaultHeader, nil
	}
	return schema.NormalizeTabHeader(string(raw))
}
