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

const (
	AppName    = "retro-addons"
	AppVersion = "0.8.2"

	CfgFile     = "config.toml"
	LogFile     = "retro-addons.log"
	HistoryFile = "history.json"
	CatalogFile = "catalog.toml"

	// DisableDialogWrapEnv skips the dialog override prelude entirely when
	// set, leaving installer scripts to talk to a real terminal.
	DisableDialogWrapEnv = "ADDONS_DISABLE_DIALOG_WRAP"
	CfgEnv               = "ADDONS_CFG"

	// UserDir is the fixed data directory on a Batocera-style system.
	// Off-device (development) the xdg paths are used instead.
	UserDir = "/userdata/system/retro-addons"
)
