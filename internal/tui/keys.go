package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"pkt.systems/tabsession/core"
)

// keyMap joins the front-end's own keys with the session's tab chords so
// one help view lists both.
type keyMap struct {
	focus      key.Binding
	focusBack  key.Binding
	openWindow key.Binding
	cancelDrag key.Binding
	toggleHelp key.Binding
	quit       key.Binding
	tabs       []key.Binding
}

func newKeyMap(shortcuts core.ShortcutDispatcher) keyMap {
	return keyMap{
		focus:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		focusBack:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "focus back")),
		openWindow: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "window")),
		cancelDrag: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		tabs:       shortcuts.Bindings(),
	}
}

// ShortHelp implements help.KeyMap. Only the first two tab chords (new and
// close) fit on the status line.
func (k keyMap) ShortHelp() []key.Binding {
	out := []key.Binding{k.focus, k.openWindow}
	if len(k.tabs) >= 2 {
		out = append(out, k.tabs[:2]...)
	}
	return append(out, k.toggleHelp, k.quit)
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.focus, k.focusBack, k.openWindow, k.cancelDrag, k.toggleHelp, k.quit},
		k.tabs,
	}
}
