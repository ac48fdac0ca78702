package core

import "pkt.systems/tabsession/schema"

// EventSink receives window events from the controller.
type EventSink interface {
	OnWindowEvent(event schema.WindowEvent)
}

// WindowHandle is the render surface of one window.
type WindowHandle interface {
	// Render draws the tab strip and the selected tab's content.
	Render(snapshot schema.WindowSnapshot)
	// TabBounds returns the on-screen container bounds of each tab, in
	// display order, in the strip's coordinate space.
	TabBounds() []schema.Bounds
}

// WindowHost creates, shows, and closes the windows the controller manages.
type WindowHost interface {
	CreateWindow(initial schema.WindowSnapshot) (WindowHandle, error)
	ShowWindow(handle WindowHandle)
	CloseWindow(handle WindowHandle)
}

type nopHandle struct{}

func (nopHandle) Render(schema.WindowSnapshot) {}

func (nopHandle) TabBounds() []schema.Bounds { return nil }

type nopHost struct{}

func (nopHost) CreateWindow(schema.WindowSnapshot) (WindowHandle, error) { return nopHandle{}, nil }

func (nopHost) ShowWindow(WindowHandle) {}

func (nopHost) CloseWindow(WindowHandle) {}
