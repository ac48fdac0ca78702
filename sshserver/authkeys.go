package sshserver

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// AuthorizedKeys is an authorized_keys file, reloaded when it changes on disk.
type AuthorizedKeys struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	keys    [][]byte
}

// NewAuthorizedKeys loads the file at path.
func NewAuthorizedKeys(path string) (*AuthorizedKeys, error) {
	a := &AuthorizedKeys{path: path}
	if err := a.refresh(); err != nil {
		return nil, err
	}
	return a, nil
}

// Allowed reports whether key is listed.
func (a *AuthorizedKeys) Allowed(key ssh.PublicKey) (bool, error) {
	if err := a.refresh(); err != nil {
		return false, err
	}
	wire := key.Marshal()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, known := range a.keys {
		if bytes.Equal(known, wire) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of listed keys.
func (a *AuthorizedKeys) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.keys)
}

func (a *AuthorizedKeys) refresh() error {
	info, err := os.Stat(a.path)
	if err != nil {
		return fmt.Errorf("stat authorized keys: %w", err)
	}
	a.mu.Lock()
	unchanged := a.keys != nil && info.ModTime().Equal(a.modTime) && info.Size() == a.size
	a.mu.Unlock()
	if unchanged {
		return nil
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("read authorized keys: %w", err)
	}
	keys, err := parseAuthorizedKeys(data)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.keys = keys
	a.modTime = info.ModTime()
	a.size = info.Size()
	a.mu.Unlock()
	return nil
}

func parseAuthorizedKeys(data []byte) ([][]byte, error) {
	keys := [][]byte{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("authorized keys line %d: %w", line, err)
		}
		keys = append(keys, key.Marshal())
	}
	return keys, scanner.Err()
}
