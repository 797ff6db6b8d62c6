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

// Package tui is the terminal UI for browsing the add-on catalog and
// watching install batches run.
package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ThemeBgColor is the background color name for use in tview color tags.
// Must match the PrimitiveBackgroundColor set in SetTheme.
const ThemeBgColor = "darkblue"

func SetTheme(theme *tview.Theme) {
	theme.BorderColor = tcell.ColorLightYellow
	theme.PrimaryTextColor = tcell.ColorWhite
	theme.ContrastSecondaryTextColor = tcell.ColorFuchsia
	theme.PrimitiveBackgroundColor = tcell.ColorDarkBlue // matches ThemeBgColor
	theme.ContrastBackgroundColor = tcell.ColorBlue
	theme.InverseTextColor = tcell.ColorDarkBlue
}

func CenterWidget(width, height int, p tview.Primitive) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func genericModal(
	message string,
	title string,
	action func(buttonIndex int, buttonLabel string),
	buttons []string,
) *tview.Modal {
	modal := tview.NewModal()
	modal.SetTitle(title).
		SetBorder(true).
		SetTitleAlign(tview.AlignCenter)
	modal.SetText(message)
	if len(buttons) > 0 {
		modal.AddButtons(buttons).
			SetDoneFunc(action)
	}
	return modal
}

// runApp displays a built application, retrying on an alternate tty on
// error. Works around consoles where the current tty cannot host a
// screen.
func runApp(app *tview.Application) error {
	return tryRunApp(app, func() (*tview.Application, error) {
		return app, nil
	})
}
