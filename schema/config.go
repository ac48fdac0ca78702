package schema

import "errors"

// SessionConfig defines defaults and limits for the session controller.
type SessionConfig struct {
	// DefaultHeader labels tabs created without an explicit header.
	DefaultHeader TabHeader
	// PayloadTag marks drag payloads produced by this session.
	PayloadTag PayloadTag
	// QueueDepth bounds each window's pending work.
	QueueDepth int
	// ContentLines caps the activity log kept by each tab.
	ContentLines int
	Keys         KeyBindings
}

// KeyBindings lists the chords bound to each dispatcher action.
type KeyBindings struct {
	NewTab   []string
	CloseTab []string
	// SelectModifiers are combined with digits 1-9 (and keypad digits).
	SelectModifiers []string
}

const (
	// DefaultTabHeader matches the label of a fresh tab.
	DefaultTabHeader TabHeader = "Home"
	// DefaultPayloadTag identifies tab drags of this system.
	DefaultPayloadTag PayloadTag = "tabsession.tab"
	// DefaultQueueDepth is the default per-window queue length.
	DefaultQueueDepth = 64
	// DefaultContentLines is the default activity log length per tab.
	DefaultContentLines = 200
)

// DefaultKeyBindings returns the stock chord set.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		NewTab:          []string{"ctrl+t"},
		CloseTab:        []string{"ctrl+w", "ctrl+f4"},
		SelectModifiers: []string{"ctrl", "alt"},
	}
}

// NormalizeSessionConfig applies defaults and validates the config.
func NormalizeSessionConfig(cfg SessionConfig) (SessionConfig, error) {
	if cfg.DefaultHeader == "" {
		cfg.DefaultHeader = DefaultTabHeader
	}
	if cfg.PayloadTag == "" {
		cfg.PayloadTag = DefaultPayloadTag
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.ContentLines <= 0 {
		cfg.ContentLines = DefaultContentLines
	}
	defaults := DefaultKeyBindings()
	if len(cfg.Keys.NewTab) == 0 {
		cfg.Keys.NewTab = defaults.NewTab
	}
	if len(cfg.Keys.CloseTab) == 0 {
		cfg.Keys.CloseTab = defaults.CloseTab
	}
	if len(cfg.Keys.SelectModifiers) == 0 {
		cfg.Keys.SelectModifiers = defaults.SelectModifiers
	}
	header, err := NormalizeTabHeader(string(cfg.DefaultHeader))
	if err != nil {
		return SessionConfig{}, errors.New("default header must not be blank")
	}
	cfg.DefaultHeader = header
	return cfg, nil
}
