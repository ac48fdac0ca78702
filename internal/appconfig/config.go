package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tabsession/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	Session       SessionConfig `mapstructure:"session" yaml:"session"`
	Keys          KeysConfig    `mapstructure:"keys" yaml:"keys"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	UI            UIConfig      `mapstructure:"ui" yaml:"ui"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// SessionConfig controls the window controller.
type SessionConfig struct {
	DefaultHeader string `mapstructure:"default_header" yaml:"default_header"`
	PayloadTag    string `mapstructure:"payload_tag" yaml:"payload_tag"`
	QueueDepth    int    `mapstructure:"queue_depth" yaml:"queue_depth"`
	ContentLines  int    `mapstructure:"content_lines" yaml:"content_lines"`
}

// KeysConfig binds chords to tab actions.
type KeysConfig struct {
	NewTab          []string `mapstructure:"new_tab" yaml:"new_tab"`
	CloseTab        []string `mapstructure:"close_tab" yaml:"close_tab"`
	SelectModifiers []string `mapstructure:"select_modifiers" yaml:"select_modifiers"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr         string `mapstructure:"addr" yaml:"addr"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Enabled            bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	TabMaxWidth int `mapstructure:"tab_max_width" yaml:"tab_max_width"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	keys := schema.DefaultKeyBindings()
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".tabsession", "state"),
		Session: SessionConfig{
			DefaultHeader: string(schema.DefaultTabHeader),
			PayloadTag:    string(schema.DefaultPayloadTag),
			QueueDepth:    schema.DefaultQueueDepth,
			ContentLines:  schema.DefaultContentLines,
		},
		Keys: KeysConfig{
			NewTab:          keys.NewTab,
			CloseTab:        keys.CloseTab,
			SelectModifiers: keys.SelectModifiers,
		},
		HTTP: HTTPConfig{
			Enabled:      true,
			Addr:         ":27580",
			HistoryLimit: 500,
		},
		SSH: SSHConfig{
			Enabled:            true,
			Addr:               ":27522",
			HostKeyPath:        filepath.Join(home, ".tabsession", "ssh_host_key"),
			AuthorizedKeysPath: "",
		},
		UI: UIConfig{
			TabMaxWidth: 24,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabsession", "config.yaml"), nil
}

// SessionSettings converts the session and keys sections for the controller.
func (c Config) SessionSettings() schema.SessionConfig {
	return schema.SessionConfig{
		DefaultHeader: schema.TabHeader(c.Session.DefaultHeader),
		PayloadTag:    schema.PayloadTag(c.Session.PayloadTag),
		QueueDepth:    c.Session.QueueDepth,
		ContentLines:  c.Session.ContentLines,
		Keys: schema.KeyBindings{
			NewTab:          c.Keys.NewTab,
			CloseTab:        c.Keys.CloseTab,
			SelectModifiers: c.Keys.SelectModifiers,
		},
	}
}
