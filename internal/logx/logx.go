package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/schema"
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithWindow annotates the logger with the window id if present.
func WithWindow(ctx context.Context, windowID schema.WindowID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if windowID != "" {
		log = log.With("window", windowID)
	}
	return log
}

// WithWindowTab annotates the logger with window and tab identifiers.
func WithWindowTab(ctx context.Context, windowID schema.WindowID, tabID schema.TabID) pslog.Logger {
	log := WithWindow(ctx, windowID)
	if tabID != "" {
		log = log.With("tab", tabID)
	}
	return log
}

// WithMove annotates the logger with the endpoints of a tab move.
func WithMove(log pslog.Logger, from, to schema.WindowID) pslog.Logger {
	if from != "" {
		log = log.With("from", from)
	}
	if to != "" {
		log = log.With("to", to)
	}
	return log
}
