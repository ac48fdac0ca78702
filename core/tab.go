package core

import (
	"fmt"
	"sync"

	"pkt.systems/tabsession/schema"
)

// Content is the live node shown while its tab is selected. A content node
// renders inside at most one tab container at a time; embed Node to satisfy
// the interface.
type Content interface {
	// Body returns a textual rendition of the content.
	Body() string
	contentNode() *Node
}

// Node tracks the single parent container of a piece of content.
type Node struct {
	mu     sync.Mutex
	parent schema.WindowID
}

func (n *Node) contentNode() *Node { return n }

// Parent reports the window currently rendering the content, or "".
func (n *Node) Parent() schema.WindowID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

func (n *Node) attach(parent schema.WindowID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.parent != "" {
		return fmt.Errorf("attach to %s: %w (parent %s)", parent, schema.ErrContentParented, n.parent)
	}
	n.parent = parent
	return nil
}

func (n *Node) detach(parent schema.WindowID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.parent == parent {
		n.parent = ""
	}
}

// TextContent is content with a fixed text body.
type TextContent struct {
	Node
	text string
}

// NewTextContent returns content rendering text.
func NewTextContent(text string) *TextContent {
	return &TextContent{text: text}
}

// Body implements Content.
func (c *TextContent) Body() string {
	return c.text
}

// TabRecord is one tab: identity, label, closability, and its content.
// Header is only mutated on the owning window's loop.
type TabRecord struct {
	id       schema.TabID
	header   schema.TabHeader
	closable bool
	content  Content
}

// NewTabRecord creates a tab with a fresh id. A nil content gets an empty
// text body.
func NewTabRecord(header schema.TabHeader, closable bool, content Content) *TabRecord {
	if content == nil {
		content = NewTextContent("")
	}
	return &TabRecord{
		id:       schema.TabID(newID()),
		header:   header,
		closable: closable,
		content:  content,
	}
}

// ID returns the tab id.
func (t *TabRecord) ID() schema.TabID { return t.id }

// Header returns the current label.
func (t *TabRecord) Header() schema.TabHeader { return t.header }

// Closable reports whether user close requests are honoured.
func (t *TabRecord) Closable() bool { return t.closable }

// Content returns the tab's content node.
func (t *TabRecord) Content() Content { return t.content }

// Snapshot returns a transport-friendly view of the tab.
func (t *TabRecord) Snapshot(selected bool) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:       t.id,
		Header:   t.header,
		Closable: t.closable,
		Selected: selected,
		Body:     t.content.Body(),
	}
}
