package core

import "pkt.systems/tabsession/schema"

// ResolveDropIndex maps a pointer x in a tab strip's coordinate space to an
// insertion index, given the rendered container bounds in display order.
//
// The pointer is measured relative to each container; the first container
// whose trailing edge the pointer has not yet passed is the insertion point.
// When the pointer lies past every container the result is len(bounds),
// meaning append.
func ResolveDropIndex(x int, bounds []schema.Bounds) int {
	for i, b := range bounds {
		if (x-b.X)-b.Width < 0 {
			return i
		}
	}
	return len(bounds)
}
