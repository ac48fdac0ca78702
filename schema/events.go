package schema

// WindowEventType identifies a window lifecycle or content change.
type WindowEventType string

const (
	// WindowEventOpened is emitted once a window is created and shown.
	WindowEventOpened WindowEventType = "opened"
	// WindowEventChanged is emitted after any mutation of the window's tabs.
	WindowEventChanged WindowEventType = "changed"
	// WindowEventClosed is emitted when a window reaches the closed state.
	WindowEventClosed WindowEventType = "closed"
)

// WindowEvent describes a change observed by front-ends.
type WindowEvent struct {
	Type   WindowEventType `json:"type"`
	Window WindowSnapshot  `json:"window"`
	// Tab is the tab the change was about, when there is one.
	Tab TabID `json:"tab,omitempty"`
}
