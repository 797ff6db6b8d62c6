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

package runner

import "strings"

// authKeywords mark a URL as worth surfacing to the user, e.g. device
// authentication links printed by store clients.
var authKeywords = []string{
	"authenticate", "login", "visit", "authorization", "auth", "setup",
}

// excludeKeywords filter the noise: download progress, tool chatter,
// image assets and known package hosts.
var excludeKeywords = []string{
	"warning", "see http", "config",
	"download", "downloading", "fetching", "getting",
	"curl", "wget", "github.com", "raw.githubusercontent",
	"resolving", "connecting", "saving to", "http request sent",
	"wohlsoft.ru", "sourceforge.net",
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
}

// contextKeywords pull the preceding line into the displayed list when
// it explains what the URL is for.
var contextKeywords = []string{"authenticate", "visit"}

// detectURL judges whether a line holds an important URL. The
// immediately preceding line provides context: "please authenticate:"
// followed by a bare link is the common shape. includeContext reports
// whether the previous line should be shown too.
func detectURL(line, prevLine string) (important, includeContext bool) {
	if !strings.Contains(line, "http://") && !strings.Contains(line, "https://") {
		return false, false
	}
	if strings.TrimSpace(line) == "" {
		return false, false
	}

	lower := strings.ToLower(line)
	prevLower := strings.ToLower(prevLine)

	matched := false
	for _, kw := range authKeywords {
		if strings.Contains(lower, kw) || strings.Contains(prevLower, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return false, false
	}

	for _, kw := range excludeKeywords {
		if strings.Contains(lower, kw) {
			return false, false
		}
	}
	// wget timestamps like --2026-08-28
	if strings.HasPrefix(strings.TrimSpace(line), "--20") {
		return false, false
	}

	for _, kw := range contextKeywords {
		if strings.Contains(prevLower, kw) {
			return true, true
		}
	}
	return true, false
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
