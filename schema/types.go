package schema

// WindowID identifies a top-level window.
type WindowID string

// TabID identifies a tab for the lifetime of the process.
type TabID string

// TabHeader is the user-facing label of a tab.
type TabHeader string

// PayloadTag marks drag payloads this system recognizes.
type PayloadTag string

// Bounds is the horizontal extent of a rendered tab container, in the
// coordinate space of its tab strip.
type Bounds struct {
	X     int `json:"x"`
	Width int `json:"width"`
}

// Right returns the first coordinate past the container.
func (b Bounds) Right() int {
	return b.X + b.Width
}

// WindowState is the lifecycle state of a window.
type WindowState string

const (
	// WindowOpen accepts tabs and input.
	WindowOpen WindowState = "open"
	// WindowClosing is entered the instant the tab collection becomes empty.
	WindowClosing WindowState = "closing"
	// WindowClosed is terminal.
	WindowClosed WindowState = "closed"
)
