package core

import (
	"fmt"

	"pkt.systems/tabsession/schema"
)

// SizeFunc observes structural mutations of a collection.
type SizeFunc func(c *TabCollection, before, after int)

// TabCollection is the ordered tab list of one window. It is not safe for
// concurrent use; all calls happen on the owning window's loop.
type TabCollection struct {
	owner    schema.WindowID
	items    []*TabRecord
	selected *TabRecord
	onSize   SizeFunc
}

// NewTabCollection returns an empty collection owned by window owner.
func NewTabCollection(owner schema.WindowID, onSize SizeFunc) *TabCollection {
	return &TabCollection{owner: owner, onSize: onSize}
}

// Owner returns the owning window id.
func (c *TabCollection) Owner() schema.WindowID { return c.owner }

// Len returns the number of tabs.
func (c *TabCollection) Len() int { return len(c.items) }

// Items returns the tabs in display order.
func (c *TabCollection) Items() []*TabRecord {
	out := make([]*TabRecord, len(c.items))
	copy(out, c.items)
	return out
}

// Selected returns the selected tab or nil.
func (c *TabCollection) Selected() *TabRecord { return c.selected }

// At returns the tab at index i or nil.
func (c *TabCollection) At(i int) *TabRecord {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// IndexOf returns the display index of id or -1.
func (c *TabCollection) IndexOf(id schema.TabID) int {
	for i, item := range c.items {
		if item.id == id {
			return i
		}
	}
	return -1
}

// Find returns the tab with id or nil.
func (c *TabCollection) Find(id schema.TabID) *TabRecord {
	return c.At(c.IndexOf(id))
}

// Add appends record and optionally selects it.
func (c *TabCollection) Add(record *TabRecord, selectIt bool) error {
	return c.Insert(len(c.items), record, selectIt)
}

// Insert places record at index, clamped to [0, Len()], and optionally
// selects it. The record's content must not have a parent.
func (c *TabCollection) Insert(index int, record *TabRecord, selectIt bool) error {
	if record == nil {
		return schema.ErrInvalidRequest
	}
	if c.IndexOf(record.id) >= 0 {
		return fmt.Errorf("insert %s: %w", record.id, schema.ErrDuplicateTab)
	}
	if err := record.content.contentNode().attach(c.owner); err != nil {
		return err
	}
	index = clampIndex(index, len(c.items))
	before := len(c.items)
	c.items = append(c.items, nil)
	copy(c.items[index+1:], c.items[index:])
	c.items[index] = record
	if selectIt || c.selected == nil {
		c.selected = record
	}
	c.notify(before)
	return nil
}

// Remove takes record out of the collection. It ignores closability; user
// close requests are filtered before reaching here.
func (c *TabCollection) Remove(record *TabRecord) bool {
	if record == nil {
		return false
	}
	before := len(c.items)
	if _, ok := c.take(record.id); !ok {
		return false
	}
	c.notify(before)
	return true
}

// Detach removes the tab with id for a drag-originated move and returns it
// with its former index. No size notification fires; the caller re-checks
// the collection size once the move completes.
func (c *TabCollection) Detach(id schema.TabID) (*TabRecord, int, bool) {
	index := c.IndexOf(id)
	record, ok := c.take(id)
	return record, index, ok
}

// Move reorders the tab at from to index to, clamped. Membership is unchanged.
func (c *TabCollection) Move(from, to int) bool {
	if from < 0 || from >= len(c.items) {
		return false
	}
	record := c.items[from]
	c.items = append(c.items[:from], c.items[from+1:]...)
	to = clampIndex(to, len(c.items))
	c.items = append(c.items, nil)
	copy(c.items[to+1:], c.items[to:])
	c.items[to] = record
	return true
}

// Select makes the tab with id the selection.
func (c *TabCollection) Select(id schema.TabID) bool {
	record := c.Find(id)
	if record == nil {
		return false
	}
	c.selected = record
	return true
}

// SelectByOrdinal selects the n-th tab when 0 <= n < Len().
func (c *TabCollection) SelectByOrdinal(n int) bool {
	record := c.At(n)
	if record == nil {
		return false
	}
	c.selected = record
	return true
}

// SelectedIndex returns the index of the selection or -1.
func (c *TabCollection) SelectedIndex() int {
	if c.selected == nil {
		return -1
	}
	return c.IndexOf(c.selected.id)
}

// SetHeader relabels the tab with id.
func (c *TabCollection) SetHeader(id schema.TabID, header schema.TabHeader) bool {
	record := c.Find(id)
	if record == nil {
		return false
	}
	record.header = header
	return true
}

func (c *TabCollection) take(id schema.TabID) (*TabRecord, bool) {
	index := c.IndexOf(id)
	if index < 0 {
		return nil, false
	}
	record := c.items[index]
	c.items = append(c.items[:index], c.items[index+1:]...)
	record.content.contentNode().detach(c.owner)
	if c.selected == record {
		c.selected = nil
		if len(c.items) > 0 {
			c.selected = c.items[clampIndex(index, len(c.items)-1)]
		}
	}
	return record, true
}

func (c *TabCollection) notify(before int) {
	if c.onSize != nil {
		c.onSize(c, before, len(c.items))
	}
}

func clampIndex(index, limit int) int {
	if index < 0 {
		return 0
	}
	if index > limit {
		return limit
	}
	return index
}
