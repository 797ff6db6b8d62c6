// Retro Addons
// Copyright (c) 2026 The Retro Addons Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Retro Addons.
//
// Retro Addons is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Retro Addons is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Retro Addons.  If not, see <http://www.gnu.org/licenses/>.

// Package history persists per-app install outcomes in a small JSON
// file: app name mapped to a list of dated attempts. An app counts as
// installed if any recorded attempt succeeded; uninstalling drops its
// record entirely.
package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// DateFormat matches the record format used on existing installs.
const DateFormat = "2006-01-02 15:04:05"

// Entry is one install attempt.
type Entry struct {
	Date    string `json:"date"`
	Success bool   `json:"success"`
}

// Store reads and writes the history file. Safe for concurrent use.
type Store struct {
	fs    afero.Fs
	clock clockwork.Clock
	path  string
	mu    sync.Mutex
}

func NewStore(fs afero.Fs, clock clockwork.Clock, path string) *Store {
	return &Store{
		fs:    fs,
		clock: clock,
		path:  path,
	}
}

// load tolerates a missing or corrupt file by starting fresh: history
// is advisory data, never worth failing an install over.
func (s *Store) load() map[string][]Entry {
	history := map[string][]Entry{}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return history
	}
	if err := json.Unmarshal(data, &history); err != nil {
		return map[string][]Entry{}
	}
	return history
}

func (s *Store) save(history map[string][]Entry) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("error creating history directory: %w", err)
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling history: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("error writing history file: %w", err)
	}
	return nil
}

// MarkInstalled appends an install attempt for name.
func (s *Store) MarkInstalled(name string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load()
	history[name] = append(history[name], Entry{
		Date:    s.clock.Now().Format(DateFormat),
		Success: success,
	})
	return s.save(history)
}

// MarkUninstalled removes name from the history entirely.
func (s *Store) MarkUninstalled(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load()
	if _, ok := history[name]; !ok {
		return nil
	}
	delete(history, name)
	return s.save(history)
}

// IsInstalled reports whether any recorded attempt for name succeeded.
func (s *Store) IsInstalled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.load()[name] {
		if entry.Success {
			return true
		}
	}
	return false
}

// LastInstallDate returns the date of the most recent successful
// install of name, if there is one.
func (s *Store) LastInstallDate(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()[name]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Success {
			return entries[i].Date, true
		}
	}
	return "", false
}

// Attempts returns all recorded attempts for name, oldest first.
func (s *Store) Attempts(name string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()[name]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
