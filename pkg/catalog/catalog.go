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

// Package catalog holds the static mapping of add-on display names to
// their shell install commands. The catalog is read-only configuration:
// a TOML file on disk when present, otherwise the embedded defaults.
package catalog

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

//go:embed catalog.toml
var embeddedCatalog []byte

// UninstallSuffix marks a queued job as an uninstall of an app.
const UninstallSuffix = " (Uninstall)"

// App is one catalog entry. Command is an opaque shell command, often
// a "curl ... | bash" pipeline.
type App struct {
	Name     string `toml:"name"`
	Command  string `toml:"command"`
	Category string `toml:"category,omitempty"`
}

// Catalog is an ordered list of apps, preserving the file's order for
// display.
type Catalog struct {
	Apps []App `toml:"apps"`
}

// Load reads the catalog file at path, falling back to the embedded
// defaults when the file is missing. A present-but-broken file is an
// error: silently showing the wrong catalog would be worse.
func Load(fs afero.Fs, path string) (*Catalog, error) {
	data := embeddedCatalog

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error checking catalog file: %w", err)
	}
	if exists {
		data, err = afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("error reading catalog file: %w", err)
		}
	} else {
		log.Debug().Str("path", path).Msg("no catalog file, using embedded defaults")
	}

	var cat Catalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return &cat, nil
}

// Lookup finds an app by display name.
func (c *Catalog) Lookup(name string) (App, bool) {
	for _, app := range c.Apps {
		if app.Name == name {
			return app, true
		}
	}
	return App{}, false
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, app := range c.Apps {
		if app.Category == "" || seen[app.Category] {
			continue
		}
		seen[app.Category] = true
		out = append(out, app.Category)
	}
	return out
}

// ByCategory returns the apps in a category, preserving catalog order.
func (c *Catalog) ByCategory(category string) []App {
	var out []App
	for _, app := range c.Apps {
		if app.Category == category {
			out = append(out, app)
		}
	}
	return out
}

var uninstallScriptRe = regexp.MustCompile(`(https://\S+)\.sh`)

// UninstallCommand derives an uninstall command from an install
// command by pointing its script URL at the _uninstall variant:
// .../7zip/7zip.sh becomes .../7zip/7zip_uninstall.sh. Commands with
// no script URL have no derivable uninstall.
func UninstallCommand(installCmd string) (string, bool) {
	if !uninstallScriptRe.MatchString(installCmd) {
		return "", false
	}
	return uninstallScriptRe.ReplaceAllString(installCmd, "${1}_uninstall.sh"), true
}

// UninstallJobName labels the queued uninstall job for an app.
func UninstallJobName(appName string) string {
	return appName + UninstallSuffix
}

// SplitUninstallJobName reports whether a job name is an uninstall job
// and returns the underlying app name.
func SplitUninstallJobName(jobName string) (string, bool) {
	if !strings.HasSuffix(jobName, UninstallSuffix) {
		return jobName, false
	}
	return strings.TrimSuffix(jobName, UninstallSuffix), true
}
