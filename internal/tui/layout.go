package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pkt.systems/tabsession/internal/strip"
	"pkt.systems/tabsession/schema"
)

const (
	// bodyLines is the number of content lines shown per window.
	bodyLines = 3
	// minInnerWidth keeps boxes readable when the terminal size is unknown.
	minInnerWidth = 24
	// stripOffset is the row of the tab strip below a region's title row:
	// title, top border, strip.
	stripOffset = 2
	// stripOrigin is the column of the first strip cell, right of the border.
	stripOrigin = 1
)

// region is where one window is drawn on screen.
type region struct {
	window schema.WindowSnapshot
	top    int
	height int
	bounds []schema.Bounds
}

func (r region) stripRow() int { return r.top + stripOffset }

func (r region) contains(y int) bool { return y >= r.top && y < r.top+r.height }

// layout stacks windows vertically in creation order.
func layout(windows []schema.WindowSnapshot, maxLabelWidth int) []region {
	out := make([]region, 0, len(windows))
	top := 0
	for _, w := range windows {
		r := region{
			window: w,
			top:    top,
			height: 1 + 2 + 2 + bodyLines,
			bounds: strip.Layout(w.Headers(), maxLabelWidth),
		}
		out = append(out, r)
		top += r.height
	}
	return out
}

// stripAt returns the region whose strip row is y.
func stripAt(regions []region, y int) (region, bool) {
	for _, r := range regions {
		if r.stripRow() == y {
			return r, true
		}
	}
	return region{}, false
}

// regionAt returns the region covering row y.
func regionAt(regions []region, y int) (region, bool) {
	for _, r := range regions {
		if r.contains(y) {
			return r, true
		}
	}
	return region{}, false
}

type styles struct {
	box      lipgloss.Style
	title    lipgloss.Style
	focused  lipgloss.Style
	tab      lipgloss.Style
	selected lipgloss.Style
	dragged  lipgloss.Style
	rule     lipgloss.Style
	status   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		box:      r.NewStyle().Border(lipgloss.RoundedBorder()),
		title:    r.NewStyle().Faint(true),
		focused:  r.NewStyle().Bold(true),
		tab:      r.NewStyle(),
		selected: r.NewStyle().Reverse(true),
		dragged:  r.NewStyle().Underline(true),
		rule:     r.NewStyle().Faint(true),
		status:   r.NewStyle().Italic(true),
	}
}

func newHelp(r *lipgloss.Renderer) help.Model {
	h := help.New()
	keyStyle := r.NewStyle().Bold(true)
	descStyle := r.NewStyle().Faint(true)
	h.Styles = help.Styles{
		Ellipsis:       descStyle,
		ShortKey:       keyStyle,
		ShortDesc:      descStyle,
		ShortSeparator: descStyle,
		FullKey:        keyStyle,
		FullDesc:       descStyle,
		FullSeparator:  descStyle,
	}
	return h
}

func renderRegion(st styles, r region, maxLabelWidth, width int, focused bool, dragging schema.TabID) string {
	inner := width - 2
	if w := strip.Width(r.bounds); inner < w {
		inner = w
	}
	if inner < minInnerWidth {
		inner = minInnerWidth
	}

	title := " " + string(r.window.ID)
	titleStyle := st.title
	if focused {
		title = "▸" + string(r.window.ID)
		titleStyle = st.focused
	}

	labels := make([]string, 0, len(r.window.Tabs))
	for _, tab := range r.window.Tabs {
		style := st.tab
		if tab.Selected {
			style = st.selected
		}
		if tab.ID == dragging {
			style = style.Inherit(st.dragged)
		}
		labels = append(labels, style.Render(strip.Label(tab.Header, maxLabelWidth)))
	}
	lines := []string{
		strings.Join(labels, strings.Repeat(" ", strip.Separator)),
		st.rule.Render(strings.Repeat("─", inner)),
	}
	lines = append(lines, bodyOf(r.window, bodyLines, inner)...)

	box := st.box.Width(inner).Render(strings.Join(lines, "\n"))
	return titleStyle.Render(title) + "\n" + box
}

// bodyOf returns the last n lines of the selected tab's body, fitted to width.
func bodyOf(w schema.WindowSnapshot, n, width int) []string {
	var text string
	if i := w.IndexOf(w.Selected); i >= 0 {
		text = w.Tabs[i].Body
	}
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, n)
	for i := range out {
		if i < len(lines) {
			out[i] = runewidth.Truncate(lines[i], width, strip.Ellipsis)
		}
	}
	return out
}
