// Package strip lays out a tab strip in terminal cells. Every front-end and
// the default window host share it, so drop positions resolve against the
// same geometry that was drawn.
package strip

import (
	"github.com/mattn/go-runewidth"
	"pkt.systems/tabsession/schema"
)

// Separator is the number of blank cells between two tab containers.
const Separator = 1

// Ellipsis marks truncated labels.
const Ellipsis = "…"

// Label renders a header as it appears in its container: padded by one cell
// on each side and truncated to maxWidth cells when maxWidth > 0.
func Label(header schema.TabHeader, maxWidth int) string {
	text := string(header)
	if maxWidth > 0 && runewidth.StringWidth(text) > maxWidth {
		text = runewidth.Truncate(text, maxWidth, Ellipsis)
	}
	return " " + text + " "
}

// Layout returns the container bounds of each header, starting at x=0.
func Layout(headers []schema.TabHeader, maxWidth int) []schema.Bounds {
	out := make([]schema.Bounds, 0, len(headers))
	x := 0
	for _, header := range headers {
		width := runewidth.StringWidth(Label(header, maxWidth))
		out = append(out, schema.Bounds{X: x, Width: width})
		x += width + Separator
	}
	return out
}

// Width returns the total cells covered by bounds.
func Width(bounds []schema.Bounds) int {
	if len(bounds) == 0 {
		return 0
	}
	return bounds[len(bounds)-1].Right()
}

// HitTest returns the index of the container under x, or -1.
func HitTest(bounds []schema.Bounds, x int) int {
	for i, b := range bounds {
		if x >= b.X && x < b.Right() {
			return i
		}
	}
	return -1
}
