package core

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"pkt.systems/tabsession/schema"
)

// Chord is a modifier combination plus one key.
type Chord struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	Key   string
}

// ParseChord parses chords such as "ctrl+t", "Alt+9", or "ctrl+kp3".
// Modifier order and case are ignored.
func ParseChord(raw string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	var chord Chord
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == len(parts)-1 {
			if part == "" {
				return Chord{}, fmt.Errorf("chord %q: missing key: %w", raw, schema.ErrInvalidRequest)
			}
			chord.Key = part
			break
		}
		switch part {
		case "ctrl", "control":
			chord.Ctrl = true
		case "alt", "option":
			chord.Alt = true
		case "shift":
			chord.Shift = true
		case "meta", "cmd", "super", "win":
			chord.Meta = true
		default:
			return Chord{}, fmt.Errorf("chord %q: unknown modifier %q: %w", raw, part, schema.ErrInvalidRequest)
		}
	}
	return chord, nil
}

// String returns the canonical form, modifiers in ctrl, alt, shift, meta order.
func (c Chord) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("ctrl+")
	}
	if c.Alt {
		b.WriteString("alt+")
	}
	if c.Shift {
		b.WriteString("shift+")
	}
	if c.Meta {
		b.WriteString("meta+")
	}
	b.WriteString(c.Key)
	return b.String()
}

// ShortcutDispatcher maps chords to tab actions on one collection.
type ShortcutDispatcher struct {
	newTab   key.Binding
	closeTab key.Binding
	// digits[i] selects ordinal i; digits[8] always selects the last tab.
	digits [9]key.Binding
}

// NewShortcutDispatcher builds bindings from configured chords. Digit
// bindings are derived from each select modifier, keypad digits included.
func NewShortcutDispatcher(bindings schema.KeyBindings) (ShortcutDispatcher, error) {
	var d ShortcutDispatcher
	newTab, err := canonicalChords(bindings.NewTab)
	if err != nil {
		return d, err
	}
	closeTab, err := canonicalChords(bindings.CloseTab)
	if err != nil {
		return d, err
	}
	d.newTab = key.NewBinding(key.WithKeys(newTab...), key.WithHelp(first(newTab), "new tab"))
	d.closeTab = key.NewBinding(key.WithKeys(closeTab...), key.WithHelp(first(closeTab), "close tab"))
	for i := range d.digits {
		digit := fmt.Sprintf("%d", i+1)
		raw := make([]string, 0, 2*len(bindings.SelectModifiers))
		for _, mod := range bindings.SelectModifiers {
			raw = append(raw, mod+"+"+digit, mod+"+kp"+digit)
		}
		keys, err := canonicalChords(raw)
		if err != nil {
			return d, err
		}
		help := "select tab " + digit
		if i == len(d.digits)-1 {
			help = "select last tab"
		}
		d.digits[i] = key.NewBinding(key.WithKeys(keys...), key.WithHelp(first(keys), help))
	}
	return d, nil
}

// Bindings returns every binding, for help rendering.
func (d ShortcutDispatcher) Bindings() []key.Binding {
	out := []key.Binding{d.newTab, d.closeTab}
	return append(out, d.digits[:]...)
}

// Resolve returns the action bound to chord and, for ActionSelectTab, the
// ordinal to select.
func (d ShortcutDispatcher) Resolve(chord Chord) (schema.ShortcutAction, int) {
	switch {
	case key.Matches(chord, d.newTab):
		return schema.ActionNewTab, -1
	case key.Matches(chord, d.closeTab):
		return schema.ActionCloseTab, -1
	}
	for i, binding := range d.digits {
		if !key.Matches(chord, binding) {
			continue
		}
		if i == len(d.digits)-1 {
			return schema.ActionSelectLastTab, -1
		}
		return schema.ActionSelectTab, i
	}
	return schema.ActionNone, -1
}

// Dispatch applies chord to tabs. Every matched chord is handled, even when
// its effect is a no-op. newRecord supplies the tab for ActionNewTab.
func (d ShortcutDispatcher) Dispatch(tabs *TabCollection, chord Chord, newRecord func() *TabRecord) (schema.ShortcutAction, bool, error) {
	action, ordinal := d.Resolve(chord)
	switch action {
	case schema.ActionNewTab:
		if err := tabs.Add(newRecord(), true); err != nil {
			return action, true, err
		}
	case schema.ActionCloseTab:
		if selected := tabs.Selected(); selected != nil && selected.Closable() {
			tabs.Remove(selected)
		}
	case schema.ActionSelectTab:
		tabs.SelectByOrdinal(ordinal)
	case schema.ActionSelectLastTab:
		tabs.SelectByOrdinal(tabs.Len() - 1)
	default:
		return schema.ActionNone, false, nil
	}
	return action, true, nil
}

func canonicalChords(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		chord, err := ParseChord(value)
		if err != nil {
			return nil, err
		}
		out = append(out, chord.String())
	}
	return out, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
