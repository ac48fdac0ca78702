package schema

// Window lifecycle.

// OpenWindowRequest describes a request to open a window with a fresh tab.
type OpenWindowRequest struct {
	Header TabHeader
	// Pinned makes the initial tab reject user close requests.
	Pinned bool
}

// OpenWindowResponse reports the opened window.
type OpenWindowResponse struct {
	Window WindowSnapshot
	Tab    TabSnapshot
}

// CloseWindowRequest describes a request to close a window and all its tabs.
type CloseWindowRequest struct {
	WindowID WindowID
}

// CloseWindowResponse reports the final window snapshot.
type CloseWindowResponse struct {
	Window WindowSnapshot
}

// ListWindowsRequest describes a request to list open windows.
type ListWindowsRequest struct{}

// ListWindowsResponse reports open windows in creation order.
type ListWindowsResponse struct {
	Windows []WindowSnapshot
}

// GetWindowRequest describes a request for one window.
type GetWindowRequest struct {
	WindowID WindowID
}

// GetWindowResponse reports the window.
type GetWindowResponse struct {
	Window WindowSnapshot
}

// Tab lifecycle.

// NewTabRequest describes a request to append a default tab.
type NewTabRequest struct {
	WindowID WindowID
	Header   TabHeader
	Select   bool
	// Pinned tabs reject user close requests.
	Pinned bool
}

// NewTabResponse reports the created tab.
type NewTabResponse struct {
	Tab    TabSnapshot
	Window WindowSnapshot
}

// CloseTabRequest describes a user request to close a tab.
type CloseTabRequest struct {
	WindowID WindowID
	TabID    TabID
}

// CloseTabResponse reports whether the tab closed. Closed is false for
// non-closable tabs. WindowClosed reports that the tab was the last one.
type CloseTabResponse struct {
	Closed       bool
	WindowClosed bool
	Window       WindowSnapshot
}

// SelectTabRequest describes a request to select a tab.
type SelectTabRequest struct {
	WindowID WindowID
	TabID    TabID
}

// SelectTabResponse reports the window after selection.
type SelectTabResponse struct {
	Window WindowSnapshot
}

// RenameTabRequest describes a request to change a tab header.
type RenameTabRequest struct {
	WindowID WindowID
	TabID    TabID
	Header   TabHeader
}

// RenameTabResponse reports the renamed tab.
type RenameTabResponse struct {
	Tab TabSnapshot
}

// Drag and drop.

// DropRequest describes a drop on a window's tab strip.
type DropRequest struct {
	// WindowID is the window whose tab strip received the drop.
	WindowID WindowID
	// X is the pointer position in the strip's coordinate space.
	X int
}

// DropResponse reports the outcome of a drop. Handled is false when the
// payload was foreign; the event then belongs to other handlers.
type DropResponse struct {
	Handled bool
	Index   int
	Window  WindowSnapshot
	// SourceClosed reports that the move emptied and closed the source window.
	SourceClosed bool
}

// DetachResponse reports the outcome of a drop outside every tab strip.
// Detached is false when the tab was the only one in its window.
type DetachResponse struct {
	Detached bool
	Window   WindowSnapshot
}

// Shortcuts.

// ShortcutRequest describes a chord pressed in a window. An empty WindowID
// targets the focused window of the calling session.
type ShortcutRequest struct {
	WindowID WindowID
	Chord    string
}

// ShortcutResponse reports whether the chord was consumed.
type ShortcutResponse struct {
	Handled bool
	Action  ShortcutAction
	Window  WindowSnapshot
}

// ShortcutAction names a dispatcher action.
type ShortcutAction string

const (
	// ActionNone means no binding matched.
	ActionNone ShortcutAction = ""
	// ActionNewTab appends and selects a default tab.
	ActionNewTab ShortcutAction = "new_tab"
	// ActionCloseTab closes the selected tab when closable.
	ActionCloseTab ShortcutAction = "close_tab"
	// ActionSelectTab selects the tab at a digit ordinal.
	ActionSelectTab ShortcutAction = "select_tab"
	// ActionSelectLastTab selects the last tab.
	ActionSelectLastTab ShortcutAction = "select_last_tab"
)
