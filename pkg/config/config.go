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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const SchemaVersion = 1

type Values struct {
	Installer    Installer `toml:"installer,omitempty"`
	Frontend     Frontend  `toml:"frontend,omitempty"`
	ConfigSchema int       `toml:"config_schema"`
	DebugLogging bool      `toml:"debug_logging"`
}

type Installer struct {
	// TempDir is where the generated shell prelude keeps its response
	// files, shim binaries and the deferred-kill sentinel.
	TempDir           string `toml:"temp_dir,omitempty"`
	MaxLogLines       int    `toml:"max_log_lines,omitempty" validate:"omitempty,gte=10"`
	DisableDialogWrap bool   `toml:"disable_dialog_wrap"`
}

type Frontend struct {
	// APIURL is the EmulationStation HTTP API endpoint.
	APIURL string `toml:"api_url,omitempty" validate:"omitempty,url"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Installer: Installer{
		TempDir:     "/tmp",
		MaxLogLines: 1000,
	},
	Frontend: Frontend{
		APIURL: "http://localhost:1234",
	},
}

// Instance is a thread-safe view of the loaded config file. All reads
// go through getter methods so the UI thread and job goroutines never
// see a half-applied reload.
type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       sync.RWMutex
}

// DataDir returns the base directory for config, history and logs:
// the fixed system path when it exists, otherwise an xdg location.
func DataDir() string {
	if info, err := os.Stat(filepath.Dir(UserDir)); err == nil && info.IsDir() {
		return UserDir
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// NewConfig loads the config file from dir, creating it with defaults
// if it does not exist yet.
func NewConfig(fs afero.Fs, dir string, defaults Values) (*Instance, error) {
	cfg := Instance{
		fs:       fs,
		cfgPath:  filepath.Join(dir, CfgFile),
		defaults: defaults,
	}

	if v, ok := os.LookupEnv(CfgEnv); ok && v != "" {
		cfg.cfgPath = v
	}

	exists, err := afero.Exists(fs, cfg.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("error checking config file: %w", err)
	}

	if exists {
		if err := cfg.Load(); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		log.Info().Msgf("no config file found, creating default in %s", dir)
		cfg.vals = defaults
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("error saving default config: %w", err)
		}
	}

	cfg.applyEnv()

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	vals := c.defaults
	if err := toml.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if err := validator.New().Struct(&vals); err != nil {
		return fmt.Errorf("invalid config values: %w", err)
	}

	// missing numeric fields fall back rather than silently zeroing
	if vals.Installer.MaxLogLines == 0 {
		vals.Installer.MaxLogLines = c.defaults.Installer.MaxLogLines
	}
	if vals.Installer.TempDir == "" {
		vals.Installer.TempDir = c.defaults.Installer.TempDir
	}
	if vals.Frontend.APIURL == "" {
		vals.Frontend.APIURL = c.defaults.Frontend.APIURL
	}

	c.vals = vals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if err := c.fs.MkdirAll(filepath.Dir(c.cfgPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("error marshalling config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// applyEnv applies environment overrides on top of the loaded file.
func (c *Instance) applyEnv() {
	if _, ok := os.LookupEnv(DisableDialogWrapEnv); ok {
		c.mu.Lock()
		c.vals.Installer.DisableDialogWrap = true
		c.mu.Unlock()
	}
}

func (c *Instance) TempDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Installer.TempDir
}

func (c *Instance) MaxLogLines() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Installer.MaxLogLines
}

func (c *Instance) DialogWrapEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.vals.Installer.DisableDialogWrap
}

func (c *Instance) FrontendAPIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Frontend.APIURL
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
