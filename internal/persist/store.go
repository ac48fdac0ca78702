package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/tabsession/schema"
)

const layoutFile = "layout.json"

// TabLayout captures one tab's place in a window. Content is not kept.
type TabLayout struct {
	Header schema.TabHeader `json:"header"`
	Pinned bool             `json:"pinned,omitempty"`
}

// WindowLayout captures the tab order and selection of one window.
type WindowLayout struct {
	Tabs     []TabLayout `json:"tabs"`
	Selected int         `json:"selected"`
}

// Layout captures every open window of a session.
type Layout struct {
	Windows []WindowLayout `json:"windows"`
}

// LayoutFromSnapshots converts open window snapshots into a layout.
func LayoutFromSnapshots(windows []schema.WindowSnapshot) Layout {
	layout := Layout{Windows: make([]WindowLayout, 0, len(windows))}
	for _, w := range windows {
		if w.State != schema.WindowOpen || len(w.Tabs) == 0 {
			continue
		}
		entry := WindowLayout{Tabs: make([]TabLayout, 0, len(w.Tabs))}
		for i, tab := range w.Tabs {
			entry.Tabs = append(entry.Tabs, TabLayout{Header: tab.Header, Pinned: !tab.Closable})
			if tab.ID == w.Selected {
				entry.Selected = i
			}
		}
		layout.Windows = append(layout.Windows, entry)
	}
	return layout
}

// Store persists the session layout to disk.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a layout store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a layout store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the saved layout. ok is false when none was saved.
func (s *Store) Load() (Layout, bool, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("layout load miss")
			}
			return Layout{}, false, nil
		}
		s.warn("layout load failed", err)
		return Layout{}, false, err
	}
	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		s.warn("layout load failed", err)
		return Layout{}, false, err
	}
	if s.log != nil {
		s.log.Debug("layout load ok", "windows", len(layout.Windows))
	}
	return layout, true, nil
}

// Save atomically replaces the saved layout.
func (s *Store) Save(layout Layout) error {
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		s.warn("layout save failed", err)
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "layout-*.json")
	if err != nil {
		s.warn("layout save failed", err)
		return err
	}
	cleanup := func(err error) error {
		_ = os.Remove(tmp.Name())
		s.warn("layout save failed", err)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return cleanup(err)
	}
	if s.log != nil {
		s.log.Debug("layout save ok", "windows", len(layout.Windows))
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, layoutFile)
}

func (s *Store) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "err", err)
	}
}
