// Package device persists per-device settings: the table assignment, the
// UI language and the dark-mode preference. Everything else a station
// holds is in-memory only.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// State is the durable local device state.
type State struct {
	TableNumber int    `json:"table_number,omitempty"`
	Language    string `json:"language"`
	DarkMode    bool   `json:"dark_mode"`
}

// Store reads and writes device state at a fixed path.
type Store struct {
	path string
}

// DefaultPath returns the per-user state file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tableside-state.json"
	}
	return filepath.Join(home, ".tableside", "state.json")
}

// NewStore creates a store at path, or at DefaultPath when path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// Load reads the persisted state. A missing file yields the defaults.
func (s *Store) Load() (State, error) {
	state := State{Language: "en"}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("failed to read device state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return State{Language: "en"}, fmt.Errorf("failed to parse device state: %w", err)
	}
	if state.Language == "" {
		state.Language = "en"
	}
	return state, nil
}

// Save writes the state atomically (temp file + rename).
func (s *Store) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal device state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace device state: %w", err)
	}
	return nil
}

// Reset discards the persisted table assignment, keeping language and
// appearance settings. Used when the admin broadcasts a device reset.
func (s *Store) Reset() error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	state.TableNumber = 0
	return s.Save(state)
}
