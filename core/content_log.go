package core

import (
	"strings"
	"sync"

	"pkt.systems/tabsession/schema"
)

// LogContent is tab content holding a bounded list of activity lines. It
// travels with its tab, so lines appended in one window are still there after
// the tab moves to another.
type LogContent struct {
	Node
	mu       sync.Mutex
	lines    []string
	maxLines int
}

// NewLogContent returns a log keeping at most maxLines lines.
func NewLogContent(maxLines int, lines ...string) *LogContent {
	if maxLines <= 0 {
		maxLines = schema.DefaultContentLines
	}
	c := &LogContent{maxLines: maxLines}
	c.Append(lines...)
	return c
}

// Append adds lines, dropping the oldest beyond the limit.
func (c *LogContent) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, lines...)
	if len(c.lines) > c.maxLines {
		trim := len(c.lines) - c.maxLines
		c.lines = append([]string(nil), c.lines[trim:]...)
	}
}

// Lines returns the last limit lines; limit <= 0 returns all of them.
func (c *LogContent) Lines(limit int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := len(c.lines)
	if limit <= 0 || limit > total {
		limit = total
	}
	out := make([]string, limit)
	copy(out, c.lines[total-limit:])
	return out
}

// Body implements Content.
func (c *LogContent) Body() string {
	return strings.Join(c.Lines(0), "\n")
}

// note appends a line to record's content when it keeps a log.
func note(record *TabRecord, line string) {
	if log, ok := record.Content().(*LogContent); ok {
		log.Append(line)
	}
}
