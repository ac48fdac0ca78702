package schema

// TabSnapshot is a read-only view of tab state for transports.
type TabSnapshot struct {
	ID       TabID     `json:"id"`
	Header   TabHeader `json:"header"`
	Closable bool      `json:"closable"`
	Selected bool      `json:"selected"`
	// Body is the textual rendition of the tab content, if the content has one.
	Body string `json:"body,omitempty"`
}

// WindowSnapshot is a read-only view of one window and its tab collection.
type WindowSnapshot struct {
	ID       WindowID      `json:"id"`
	State    WindowState   `json:"state"`
	Tabs     []TabSnapshot `json:"tabs"`
	Selected TabID         `json:"selected,omitempty"`
	Shown    bool          `json:"shown"`
}

// Headers returns the tab headers in display order.
func (w WindowSnapshot) Headers() []TabHeader {
	out := make([]TabHeader, 0, len(w.Tabs))
	for _, tab := range w.Tabs {
		out = append(out, tab.Header)
	}
	return out
}

// IndexOf returns the display index of the tab or -1.
func (w WindowSnapshot) IndexOf(id TabID) int {
	for i, tab := range w.Tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}
