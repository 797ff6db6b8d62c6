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
	"strings"
	"time"

	"github.com/RetroAddonsProject/retro-addons/pkg/installer/batch"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/protocol"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// tickInterval is how often the batch is polled for new output and
// pending dialogs. The shell side polls its response files at 100ms,
// so anything in that ballpark feels immediate.
const tickInterval = 250 * time.Millisecond

// visibleLogLines caps how much scrollback the log view redraws.
const visibleLogLines = 200

// InstallScreen shows a running batch: a status header, the streaming
// install log, and any modals the installers request. It implements
// batch.Presenter; all methods must be called from the UI goroutine,
// which Run guarantees by ticking inside QueueUpdateDraw.
type InstallScreen struct {
	app          *tview.Application
	pages        *tview.Pages
	status       *tview.TextView
	logView      *tview.TextView
	batch        *batch.Batch
	modalSeq     int
	modalsOpen   int
	summaryShown bool
}

func NewInstallScreen(app *tview.Application) *InstallScreen {
	s := &InstallScreen{
		app:    app,
		pages:  tview.NewPages(),
		status: tview.NewTextView().SetDynamicColors(true),
	}

	s.logView = tview.NewTextView()
	s.logView.SetBorder(true).SetTitle("Install Log")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.status, 2, 0, false).
		AddItem(s.logView, 0, 1, true)
	s.pages.AddPage("install", layout, true, true)

	app.SetRoot(s.pages, true)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape && s.modalsOpen == 0 && !s.summaryShown {
			s.confirmAbort()
			return nil
		}
		return event
	})
	return s
}

// Run drives the batch until every job is recorded and the user has
// dismissed the summary.
func (s *InstallScreen) Run(b *batch.Batch) error {
	s.batch = b

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.app.QueueUpdateDraw(func() {
					b.Tick(s)
					s.refresh(b)
					if b.Finished() && s.modalsOpen == 0 {
						s.showSummary(b)
					}
				})
			}
		}
	}()

	err := runApp(s.app)
	close(done)
	if err != nil {
		return fmt.Errorf("failed to run application: %w", err)
	}
	return nil
}

func (s *InstallScreen) refresh(b *batch.Batch) {
	if job, ok := b.CurrentJob(); ok {
		s.status.SetText(fmt.Sprintf(
			"[::b]Installing %d of %d:[::-] %s",
			b.CurrentIndex()+1, len(b.Jobs()), job.Name,
		))
	} else {
		s.status.SetText("[::b]Finishing up...[::-]")
	}

	lines := b.Lines()
	if len(lines) > visibleLogLines {
		lines = lines[len(lines)-visibleLogLines:]
	}
	s.logView.SetText(strings.Join(lines, "\n"))
	s.logView.ScrollToEnd()
}

func (s *InstallScreen) confirmAbort() {
	name := s.nextModalName()
	modal := genericModal(
		"Abort the current install?\nQueued installs will not run.",
		"Abort",
		func(_ int, label string) {
			s.dismiss(name)
			if label == "Yes" {
				s.batch.KillCurrent()
				s.app.Stop()
			}
		},
		[]string{"Yes", "No"},
	)
	s.present(name, modal)
}

func (s *InstallScreen) showSummary(b *batch.Batch) {
	if s.summaryShown {
		return
	}
	s.summaryShown = true

	var sb strings.Builder
	for _, res := range b.Results() {
		if res.Success {
			fmt.Fprintf(&sb, "OK      %s\n", res.Job.Name)
		} else {
			fmt.Fprintf(&sb, "FAILED  %s (exit %d)\n", res.Job.Name, res.ExitCode)
		}
	}

	name := s.nextModalName()
	modal := genericModal(sb.String(), "Install Summary",
		func(int, string) {
			s.dismiss(name)
			s.app.Stop()
		},
		[]string{"OK"},
	)
	s.present(name, modal)
}

func (s *InstallScreen) nextModalName() string {
	s.modalSeq++
	return fmt.Sprintf("modal-%d", s.modalSeq)
}

func (s *InstallScreen) present(name string, p tview.Primitive) {
	s.modalsOpen++
	s.pages.AddPage(name, p, true, true)
	s.app.SetFocus(p)
}

func (s *InstallScreen) dismiss(name string) {
	s.pages.RemovePage(name)
	s.modalsOpen--
}

// ShowInfo implements batch.Presenter.
func (s *InstallScreen) ShowInfo(title string, lines []string, onClose func()) {
	name := s.nextModalName()
	modal := genericModal(strings.Join(lines, "\n"), title,
		func(int, string) {
			s.dismiss(name)
			if onClose != nil {
				onClose()
			}
		},
		[]string{"OK"},
	)
	s.present(name, modal)
}

// ShowYesNo implements batch.Presenter.
func (s *InstallScreen) ShowYesNo(title, text string, respond func(yes bool)) {
	name := s.nextModalName()
	modal := genericModal(text, title,
		func(_ int, label string) {
			s.dismiss(name)
			respond(label == "Yes")
		},
		[]string{"Yes", "No"},
	)
	s.present(name, modal)
}

// ShowMenu implements batch.Presenter.
func (s *InstallScreen) ShowMenu(
	title, text string,
	items []protocol.Item,
	respond func(tag string, ok bool),
) {
	name := s.nextModalName()
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(title)

	for i := range items {
		item := items[i]
		list.AddItem(item.Label, "", 0, func() {
			s.dismiss(name)
			respond(item.Tag, true)
		})
	}
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			s.dismiss(name)
			respond("", false)
			return nil
		}
		return event
	})

	height := len(items) + 2
	if text != "" {
		flex := tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(tview.NewTextView().SetText(text), 0, 1, false).
			AddItem(list, height, 0, true)
		flex.SetBorder(true).SetTitle(title)
		list.SetBorder(false)
		s.present(name, CenterWidget(60, height+6, flex))
		return
	}
	s.present(name, CenterWidget(60, height, list))
}

// ShowChecklist implements batch.Presenter.
func (s *InstallScreen) ShowChecklist(
	title, _ string,
	items []protocol.Item,
	respond func(tags []string, ok bool),
) {
	name := s.nextModalName()
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(title)

	checked := make([]bool, len(items))
	for i, item := range items {
		checked[i] = item.Checked
	}

	mark := func(i int) string {
		if checked[i] {
			return "[x] " + items[i].Label
		}
		return "[ ] " + items[i].Label
	}

	for i := range items {
		idx := i
		list.AddItem(mark(idx), "", 0, func() {
			checked[idx] = !checked[idx]
			list.SetItemText(idx, mark(idx), "")
		})
	}
	list.AddItem("Confirm selection", "", 0, func() {
		var tags []string
		for i, item := range items {
			if checked[i] {
				tags = append(tags, item.Tag)
			}
		}
		s.dismiss(name)
		respond(tags, true)
	})
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			s.dismiss(name)
			respond(nil, false)
			return nil
		}
		return event
	})

	s.present(name, CenterWidget(60, len(items)+4, list))
}

// ShowMenuSelection implements batch.Presenter. Unlike ShowMenu there
// is no cancel path: the installer is blocked on stdin and an answer
// must be chosen.
func (s *InstallScreen) ShowMenuSelection(
	title string,
	options []protocol.MenuOption,
	respond func(key string),
) {
	name := s.nextModalName()
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(title)

	for i := range options {
		opt := options[i]
		list.AddItem(opt.Label, "", 0, func() {
			s.dismiss(name)
			respond(opt.Key)
		})
	}

	s.present(name, CenterWidget(60, len(options)+2, list))
}
