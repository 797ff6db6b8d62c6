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

package tui

import (
	"fmt"

	"github.com/RetroAddonsProject/retro-addons/pkg/catalog"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/batch"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// selection is the queued action for one catalog entry.
type selection int

const (
	selectNone selection = iota
	selectInstall
	selectUninstall
)

// InstallHistory is what the picker needs to label catalog entries.
// Implemented by history.Store.
type InstallHistory interface {
	IsInstalled(name string) bool
	LastInstallDate(name string) (string, bool)
}

// Picker lets the user browse the catalog by category and queue
// installs and uninstalls. The result of Run is the job list for a
// batch, in selection order.
type Picker struct {
	app      *tview.Application
	pages    *tview.Pages
	catalog  *catalog.Catalog
	history  InstallHistory
	selected map[string]selection
	order    []string
	confirm  bool
}

func NewPicker(app *tview.Application, cat *catalog.Catalog, hist InstallHistory) *Picker {
	p := &Picker{
		app:      app,
		pages:    tview.NewPages(),
		catalog:  cat,
		history:  hist,
		selected: map[string]selection{},
	}
	p.pages.AddPage("categories", p.buildCategoryPage(), true, true)
	app.SetRoot(p.pages, true)
	return p
}

// Run blocks until the user starts the batch or quits. A nil job list
// with a nil error means the user backed out.
func (p *Picker) Run() ([]batch.Job, error) {
	if err := runApp(p.app); err != nil {
		return nil, fmt.Errorf("failed to run application: %w", err)
	}
	if !p.confirm {
		return nil, nil
	}
	return p.jobs(), nil
}

// jobs converts the current selections into batch jobs, preserving the
// order the user made them in.
func (p *Picker) jobs() []batch.Job {
	var jobs []batch.Job
	for _, name := range p.order {
		app, ok := p.catalog.Lookup(name)
		if !ok {
			continue
		}
		switch p.selected[name] {
		case selectInstall:
			jobs = append(jobs, batch.NewJob(app.Name, app.Command))
		case selectUninstall:
			cmd, ok := catalog.UninstallCommand(app.Command)
			if !ok {
				continue
			}
			jobs = append(jobs, batch.NewJob(catalog.UninstallJobName(app.Name), cmd))
		case selectNone:
		}
	}
	return jobs
}

func (p *Picker) selectedCount() int {
	n := 0
	for _, sel := range p.selected {
		if sel != selectNone {
			n++
		}
	}
	return n
}

func (p *Picker) buildCategoryPage() tview.Primitive {
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle("Retro Addons")

	rebuild := func() {
		current := list.GetCurrentItem()
		list.Clear()
		for _, cat := range p.catalog.Categories() {
			category := cat
			count := len(p.catalog.ByCategory(category))
			list.AddItem(fmt.Sprintf("%s (%d)", category, count), "", 0, func() {
				p.openCategory(category)
			})
		}
		list.AddItem(fmt.Sprintf("Start (%d selected)", p.selectedCount()), "", 's', func() {
			if p.selectedCount() == 0 {
				return
			}
			p.confirm = true
			p.app.Stop()
		})
		list.AddItem("Quit", "", 'q', func() {
			p.app.Stop()
		})
		list.SetCurrentItem(current)
	}
	rebuild()

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			p.app.Stop()
			return nil
		}
		return event
	})

	// refresh the selection count whenever the page regains focus
	list.SetFocusFunc(rebuild)
	return list
}

// openCategory shows the apps of one category. Selecting an entry
// cycles it through install, uninstall (when the app is installed and
// an uninstall script can be derived), and unselected.
func (p *Picker) openCategory(category string) {
	list := tview.NewList()
	list.SetBorder(true).SetTitle(category)

	apps := p.catalog.ByCategory(category)
	label := func(app catalog.App) (main, secondary string) {
		switch p.selected[app.Name] {
		case selectInstall:
			main = "[install] " + app.Name
		case selectUninstall:
			main = "[uninstall] " + app.Name
		default:
			main = app.Name
		}
		if date, ok := p.history.LastInstallDate(app.Name); ok {
			secondary = "installed " + date
		} else {
			secondary = "not installed"
		}
		return main, secondary
	}

	for i := range apps {
		idx := i
		app := apps[i]
		main, secondary := label(app)
		list.AddItem(main, secondary, 0, func() {
			p.cycle(app)
			m, s := label(app)
			list.SetItemText(idx, m, s)
		})
	}

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			p.pages.RemovePage("category")
			return nil
		}
		return event
	})

	p.pages.AddPage("category", list, true, true)
}

func (p *Picker) cycle(app catalog.App) {
	if _, tracked := p.selected[app.Name]; !tracked {
		p.order = append(p.order, app.Name)
	}

	_, canUninstall := catalog.UninstallCommand(app.Command)
	canUninstall = canUninstall && p.history.IsInstalled(app.Name)

	switch p.selected[app.Name] {
	case selectNone:
		p.selected[app.Name] = selectInstall
	case selectInstall:
		if canUninstall {
			p.selected[app.Name] = selectUninstall
		} else {
			p.selected[app.Name] = selectNone
		}
	case selectUninstall:
		p.selected[app.Name] = selectNone
	}
}
