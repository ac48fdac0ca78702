package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/tabsession/dragdrop"
	"pkt.systems/tabsession/internal/logx"
	"pkt.systems/tabsession/schema"
)

// BeginDrag starts a drag of a tab. Nothing is mutated until the drag ends.
func (c *Controller) BeginDrag(ctx context.Context, windowID schema.WindowID, tabID schema.TabID) (*DragSession, error) {
	w, err := c.lookup(windowID)
	if err != nil {
		return nil, err
	}
	var record *TabRecord
	err = w.loop.call(ctx, func() {
		if w.open() {
			record = w.tabs.Find(tabID)
		}
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%s: %w", tabID, schema.ErrTabNotFound)
	}
	c.logger.With("window", windowID).Debug("drag start", "tab", tabID)
	return &DragSession{source: windowID, record: record, tag: c.cfg.PayloadTag}, nil
}

// Drop ends a drag on a window's tab strip. Payloads without this session's
// tag are left unhandled. Dropping on the source window reorders in place;
// any other window receives the tab through a handoff: removal on the source
// loop completes before insertion on the destination loop.
func (c *Controller) Drop(ctx context.Context, payload dragdrop.Payload[*DragSession], req schema.DropRequest) (schema.DropResponse, error) {
	session, ok := payload.Item(c.cfg.PayloadTag)
	if !ok || session == nil {
		return schema.DropResponse{}, nil
	}
	if !session.finish() {
		return schema.DropResponse{}, schema.ErrDragEnded
	}
	dst, err := c.lookup(req.WindowID)
	if err != nil {
		return schema.DropResponse{Handled: true}, err
	}

	var index int
	var resp schema.DropResponse
	var opErr error
	err = dst.loop.call(ctx, func() {
		if !dst.open() {
			opErr = schema.ErrWindowClosed
			return
		}
		index = ResolveDropIndex(req.X, dst.handle.TabBounds())
		if session.source == dst.id {
			resp, opErr = c.reorder(dst, session.record, index)
		}
	})
	if err == nil {
		err = opErr
	}
	if err != nil || session.source == dst.id {
		resp.Handled = true
		return resp, err
	}

	var moved schema.DropResponse
	var moveErr error
	if err := c.detached(ctx, func(ctx context.Context) {
		moved, moveErr = c.handoff(ctx, session, dst, index)
	}); err != nil {
		return schema.DropResponse{Handled: true}, err
	}
	moved.Handled = true
	return moved, moveErr
}

// DropOutside ends a drag away from every tab strip by moving the tab into a
// new window. The sole tab of a window stays where it is.
func (c *Controller) DropOutside(ctx context.Context, payload dragdrop.Payload[*DragSession]) (schema.DetachResponse, error) {
	session, ok := payload.Item(c.cfg.PayloadTag)
	if !ok || session == nil {
		return schema.DetachResponse{}, nil
	}
	if !session.finish() {
		return schema.DetachResponse{}, schema.ErrDragEnded
	}
	var resp schema.DetachResponse
	var detachErr error
	if err := c.detached(ctx, func(ctx context.Context) {
		resp, detachErr = c.detachToNewWindow(ctx, session)
	}); err != nil {
		return schema.DetachResponse{}, err
	}
	return resp, detachErr
}

// reorder moves record within w. Runs on w's loop.
func (c *Controller) reorder(w *window, record *TabRecord, index int) (schema.DropResponse, error) {
	detached, _, ok := w.tabs.Detach(record.ID())
	if !ok {
		return schema.DropResponse{}, fmt.Errorf("%s: %w", record.ID(), schema.ErrHandoffCancelled)
	}
	if err := w.tabs.Insert(index, detached, true); err != nil {
		return schema.DropResponse{}, err
	}
	c.logger.With("window", w.id).Debug("tab reordered", "tab", record.ID(), "index", w.tabs.IndexOf(record.ID()))
	return schema.DropResponse{Index: w.tabs.IndexOf(record.ID()), Window: c.publish(w, record.ID())}, nil
}

// handoff moves the dragged record from its source window into dst at index.
// It runs off every loop; each step is dispatched to the owning loop and
// awaited, so the destination keeps processing its own work meanwhile.
func (c *Controller) handoff(ctx context.Context, session *DragSession, dst *window, index int) (schema.DropResponse, error) {
	log := logx.WithMove(c.logger.With("tab", session.record.ID()), session.source, dst.id)
	src, err := c.lookup(session.source)
	if err != nil {
		log.Warn("handoff cancelled", "reason", "source closed")
		return schema.DropResponse{}, fmt.Errorf("source %s: %w", session.source, schema.ErrHandoffCancelled)
	}

	record, origin, err := c.detachFrom(ctx, src, session.record.ID())
	if err != nil {
		log.Warn("handoff cancelled", "err", err)
		return schema.DropResponse{}, err
	}
	log.Trace("handoff removed from source", "index", origin)

	var resp schema.DropResponse
	var insertErr error
	err = dst.loop.call(ctx, func() {
		if !dst.open() {
			insertErr = schema.ErrWindowClosed
			return
		}
		if insertErr = dst.tabs.Insert(index, record, true); insertErr != nil {
			return
		}
		note(record, "moved to "+string(dst.id))
		resp.Index = dst.tabs.IndexOf(record.ID())
		resp.Window = c.publish(dst, record.ID())
	})
	if err == nil {
		err = insertErr
	}
	if err != nil {
		log.Warn("handoff cancelled", "reason", "destination closed", "err", err)
		c.restore(ctx, src, record, origin)
		return schema.DropResponse{}, fmt.Errorf("destination %s: %w", dst.id, schema.ErrHandoffCancelled)
	}

	resp.SourceClosed = c.closeIfEmpty(ctx, src)
	log.Info("tab moved", "index", resp.Index, "source_closed", resp.SourceClosed)
	return resp, nil
}

// detachToNewWindow moves the dragged record into a window of its own.
func (c *Controller) detachToNewWindow(ctx context.Context, session *DragSession) (schema.DetachResponse, error) {
	log := c.logger.With("window", session.source).With("tab", session.record.ID())
	src, err := c.lookup(session.source)
	if err != nil {
		log.Warn("detach cancelled", "reason", "source closed")
		return schema.DetachResponse{}, fmt.Errorf("source %s: %w", session.source, schema.ErrHandoffCancelled)
	}
	var record *TabRecord
	var origin int
	var sole bool
	var opErr error
	err = src.loop.call(ctx, func() {
		if !src.open() {
			opErr = schema.ErrHandoffCancelled
			return
		}
		if src.tabs.Len() <= 1 {
			sole = true
			return
		}
		var ok bool
		record, origin, ok = src.tabs.Detach(session.record.ID())
		if !ok {
			opErr = schema.ErrHandoffCancelled
			return
		}
		c.publish(src, record.ID())
	})
	if err != nil {
		opErr = schema.ErrHandoffCancelled
	}
	if opErr != nil {
		log.Warn("detach cancelled", "err", opErr)
		return schema.DetachResponse{}, fmt.Errorf("source %s: %w", session.source, opErr)
	}
	if sole {
		log.Debug("detach ignored", "reason", "sole tab")
		return schema.DetachResponse{Window: src.snapshot()}, nil
	}
	snap, err := c.openWindowWith(ctx, record)
	if err != nil {
		log.Warn("detach failed", "err", err)
		c.restore(ctx, src, record, origin)
		return schema.DetachResponse{}, err
	}
	log.Info("tab detached", "new_window", snap.ID)
	return schema.DetachResponse{Detached: true, Window: snap}, nil
}

// detachFrom removes a record from w on w's loop. A closed window or a
// missing record cancels the handoff without touching anything.
func (c *Controller) detachFrom(ctx context.Context, w *window, id schema.TabID) (*TabRecord, int, error) {
	var record *TabRecord
	var origin int
	var ok bool
	err := w.loop.call(ctx, func() {
		if !w.open() {
			return
		}
		record, origin, ok = w.tabs.Detach(id)
		if ok {
			c.publish(w, id)
		}
	})
	if err != nil || !ok {
		return nil, -1, fmt.Errorf("source %s: %w", w.id, schema.ErrHandoffCancelled)
	}
	return record, origin, nil
}

// restore puts a detached record back at its original index, or into a new
// window once its source has closed.
func (c *Controller) restore(ctx context.Context, src *window, record *TabRecord, origin int) {
	log := c.logger.With("window", src.id).With("tab", record.ID())
	var insertErr error
	err := src.loop.call(ctx, func() {
		if !src.open() {
			insertErr = schema.ErrWindowClosed
			return
		}
		if insertErr = src.tabs.Insert(origin, record, true); insertErr == nil {
			c.publish(src, record.ID())
		}
	})
	if err == nil && insertErr == nil {
		log.Info("tab restored", "index", origin)
		return
	}
	snap, err := c.openWindowWith(ctx, record)
	if err != nil {
		log.Error("tab restore failed", "err", err)
		return
	}
	log.Info("tab restored", "new_window", snap.ID)
}

// closeIfEmpty re-checks w after a drag-originated removal, which fires no
// size notification, and closes it when it holds no tabs.
func (c *Controller) closeIfEmpty(ctx context.Context, w *window) bool {
	closed := false
	err := w.loop.call(ctx, func() {
		if w.open() && w.tabs.Len() == 0 {
			c.retire(w)
			closed = true
		}
	})
	if err != nil && !errors.Is(err, schema.ErrWindowClosed) {
		c.logger.With("window", w.id).Warn("source re-check failed", "err", err)
	}
	return closed
}

// detached runs fn on its own goroutine with a context that ignores
// cancellation, so an ownership transfer always runs to completion. The
// caller stops waiting when ctx is done.
func (c *Controller) detached(ctx context.Context, fn func(context.Context)) error {
	untrack, err := c.track()
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer untrack()
		defer close(done)
		fn(context.WithoutCancel(ctx))
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
