package core

import (
	"context"

	"pkt.systems/tabsession/dragdrop"
	"pkt.systems/tabsession/schema"
)

// Session is the transport-agnostic API for managing windows, tabs, and drags.
type Session interface {
	OpenWindow(ctx context.Context, req schema.OpenWindowRequest) (schema.OpenWindowResponse, error)
	CloseWindow(ctx context.Context, req schema.CloseWindowRequest) (schema.CloseWindowResponse, error)
	ListWindows(ctx context.Context, req schema.ListWindowsRequest) (schema.ListWindowsResponse, error)
	GetWindow(ctx context.Context, req schema.GetWindowRequest) (schema.GetWindowResponse, error)
	NewTab(ctx context.Context, req schema.NewTabRequest) (schema.NewTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error)
	RenameTab(ctx context.Context, req schema.RenameTabRequest) (schema.RenameTabResponse, error)
	BeginDrag(ctx context.Context, windowID schema.WindowID, tabID schema.TabID) (*DragSession, error)
	Drop(ctx context.Context, payload dragdrop.Payload[*DragSession], req schema.DropRequest) (schema.DropResponse, error)
	DropOutside(ctx context.Context, payload dragdrop.Payload[*DragSession]) (schema.DetachResponse, error)
	HandleShortcut(ctx context.Context, req schema.ShortcutRequest) (schema.ShortcutResponse, error)
	PayloadTag() schema.PayloadTag
	Shortcuts() ShortcutDispatcher
}

var _ Session = (*Controller)(nil)
