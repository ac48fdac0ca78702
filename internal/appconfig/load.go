package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/tabsession/core"
	"pkt.systems/tabsession/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("session.default_header", cfg.Session.DefaultHeader)
	v.SetDefault("session.payload_tag", cfg.Session.PayloadTag)
	v.SetDefault("session.queue_depth", cfg.Session.QueueDepth)
	v.SetDefault("session.content_lines", cfg.Session.ContentLines)
	v.SetDefault("keys.new_tab", cfg.Keys.NewTab)
	v.SetDefault("keys.close_tab", cfg.Keys.CloseTab)
	v.SetDefault("keys.select_modifiers", cfg.Keys.SelectModifiers)
	v.SetDefault("http.enabled", cfg.HTTP.Enabled)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.history_limit", cfg.HTTP.HistoryLimit)
	v.SetDefault("ssh.enabled", cfg.SSH.Enabled)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)
	v.SetDefault("ui.tab_max_width", cfg.UI.TabMaxWidth)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.UI.TabMaxWidth < 0 {
		return fmt.Errorf("ui.tab_max_width must not be negative")
	}
	if cfg.HTTP.HistoryLimit < 0 {
		return fmt.Errorf("http.history_limit must not be negative")
	}
	if cfg.HTTP.Enabled && cfg.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required when http is enabled")
	}
	if cfg.SSH.Enabled && cfg.SSH.Addr == "" {
		return fmt.Errorf("ssh.addr is required when ssh is enabled")
	}
	session, err := schema.NormalizeSessionConfig(cfg.SessionSettings())
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if _, err := core.NewShortcutDispatcher(session.Keys); err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
