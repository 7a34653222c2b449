package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the persisted UI preferences document: a flat key-value
// JSON file loaded at startup and written on explicit save.
type Settings struct {
	ConfirmBeforeStop   bool   `json:"confirm_before_stop"`
	ConfirmBeforeDelete bool   `json:"confirm_before_delete"`
	DefaultMemoryMB     int64  `json:"default_memory_mb"`
	DefaultCPUCount     int    `json:"default_cpu_count"`
	AccentTheme         string `json:"accent_theme"`
	AIBackendURL        string `json:"ai_backend_url"`
}

// DefaultSettings is the hardcoded document used when none is
// persisted yet.
func DefaultSettings() Settings {
	return Settings{
		ConfirmBeforeStop:   true,
		ConfirmBeforeDelete: true,
		DefaultMemoryMB:     2048,
		DefaultCPUCount:     2,
		AccentTheme:         "blue",
		AIBackendURL:        "http://localhost:11434",
	}
}

// SettingsStore owns the settings document. Constructed once at the
// application root and passed by handle, never a package singleton.
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// NewSettingsStore loads the document at path. A missing or corrupt
// file degrades to the defaults rather than failing startup.
func NewSettingsStore(path string) *SettingsStore {
	s := &SettingsStore{
		path:    path,
		current: DefaultSettings(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("[settings] corrupt document at %s, using defaults: %v", path, err)
		return s
	}
	s.current = loaded
	return s
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save replaces the document and writes it atomically (temp file then
// rename) with owner-only permissions.
func (s *SettingsStore) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return nil
}
