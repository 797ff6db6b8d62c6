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

package batch

import (
	"errors"
	"testing"

	"github.com/RetroAddonsProject/retro-addons/pkg/installer/handshake"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/protocol"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner is a scripted JobRunner driven by the test between ticks.
type fakeRunner struct {
	dialog       *protocol.DialogRequest
	menu         *protocol.MenuRequest
	lines        []string
	tail         []string
	detectedURLs []string
	menuAnswers  []string
	exitCode     int
	done         bool
	menuSurfaced bool
	urlsShown    bool
	killed       bool
}

func (f *fakeRunner) Done() bool            { return f.done }
func (f *fakeRunner) ExitCode() (int, bool) { return f.exitCode, f.done }
func (f *fakeRunner) Lines() []string       { return f.lines }
func (f *fakeRunner) Tail() []string        { return f.tail }

func (f *fakeRunner) PendingDialog() (protocol.DialogRequest, bool) {
	if f.dialog == nil {
		return protocol.DialogRequest{}, false
	}
	return *f.dialog, true
}
func (f *fakeRunner) ClearDialog() { f.dialog = nil }

func (f *fakeRunner) PendingMenu() (protocol.MenuRequest, bool, bool) {
	if f.menu == nil {
		return protocol.MenuRequest{}, false, false
	}
	return *f.menu, true, f.menuSurfaced
}
func (f *fakeRunner) MarkMenuSurfaced() { f.menuSurfaced = true }
func (f *fakeRunner) AnswerMenu(key string) error {
	f.menuAnswers = append(f.menuAnswers, key)
	f.menu = nil
	return nil
}

func (f *fakeRunner) DetectedURLs() []string { return f.detectedURLs }
func (f *fakeRunner) URLsShown() bool        { return f.urlsShown }
func (f *fakeRunner) MarkURLsShown()         { f.urlsShown = true }
func (f *fakeRunner) Kill()                  { f.killed = true }

// fakePresenter records every surfaced modal and arms the callbacks
// for the test to invoke.
type fakePresenter struct {
	infos          []string
	infoLines      [][]string
	lastOnClose    func()
	yesNoTitles    []string
	lastYesNo      func(bool)
	menuTitles     []string
	lastMenu       func(string, bool)
	checklists     []string
	lastChecklist  func([]string, bool)
	menuSelections []string
	lastSelection  func(string)
}

func (p *fakePresenter) ShowInfo(title string, lines []string, onClose func()) {
	p.infos = append(p.infos, title)
	p.infoLines = append(p.infoLines, lines)
	p.lastOnClose = onClose
}

func (p *fakePresenter) ShowYesNo(title, _ string, respond func(bool)) {
	p.yesNoTitles = append(p.yesNoTitles, title)
	p.lastYesNo = respond
}

func (p *fakePresenter) ShowMenu(title, _ string, _ []protocol.Item, respond func(string, bool)) {
	p.menuTitles = append(p.menuTitles, title)
	p.lastMenu = respond
}

func (p *fakePresenter) ShowChecklist(title, _ string, _ []protocol.Item, respond func([]string, bool)) {
	p.checklists = append(p.checklists, title)
	p.lastChecklist = respond
}

func (p *fakePresenter) ShowMenuSelection(title string, _ []protocol.MenuOption, respond func(string)) {
	p.menuSelections = append(p.menuSelections, title)
	p.lastSelection = respond
}

// fakeHistory records outcome reports.
type fakeHistory struct {
	installed   map[string]bool
	uninstalled []string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{installed: map[string]bool{}}
}

func (h *fakeHistory) MarkInstalled(name string, success bool) error {
	h.installed[name] = success
	return nil
}

func (h *fakeHistory) MarkUninstalled(name string) error {
	h.uninstalled = append(h.uninstalled, name)
	return nil
}

func newTestBatch(jobs []Job, runners map[string]*fakeRunner) (*Batch, *fakeHistory, afero.Fs) {
	fs := afero.NewMemMapFs()
	hist := newFakeHistory()
	start := func(j Job) (JobRunner, error) {
		r, ok := runners[j.Name]
		if !ok {
			return nil, errors.New("no runner scripted for " + j.Name)
		}
		return r, nil
	}
	return New(jobs, handshake.NewResponder(fs), hist, start), hist, fs
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestEmptyBatchIsImmediatelyFinished(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBatch(nil, nil)
	assert.True(t, b.Finished())
	b.Tick(&fakePresenter{})
	assert.Empty(t, b.Results())
}

func TestBatchRunsJobsSequentially(t *testing.T) {
	t.Parallel()

	runners := map[string]*fakeRunner{
		"First":  {done: true, exitCode: 0},
		"Second": {done: true, exitCode: 2, tail: []string{"boom"}},
		"Third":  {done: true, exitCode: 0},
	}
	jobs := []Job{NewJob("First", "a"), NewJob("Second", "b"), NewJob("Third", "c")}
	b, hist, _ := newTestBatch(jobs, runners)
	p := &fakePresenter{}

	// each job needs one tick to start and one to be collected
	for range 10 {
		b.Tick(p)
	}

	require.True(t, b.Finished())
	results := b.Results()
	require.Len(t, results, 3)
	assert.Equal(t, 3, b.CurrentIndex())

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, 2, results[1].ExitCode)
	assert.Equal(t, []string{"boom"}, results[1].Tail)
	// a failure does not stop the batch
	assert.True(t, results[2].Success)

	assert.Equal(t, map[string]bool{
		"First": true, "Second": false, "Third": true,
	}, hist.installed)
}

func TestFinishedBecomesTrueExactlyOnce(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	b, _, _ := newTestBatch([]Job{NewJob("Only", "x")}, map[string]*fakeRunner{"Only": r})
	p := &fakePresenter{}

	b.Tick(p)
	assert.False(t, b.Finished())

	r.done = true
	b.Tick(p)
	require.True(t, b.Finished())
	require.Len(t, b.Results(), 1)

	// further ticks change nothing
	b.Tick(p)
	assert.Len(t, b.Results(), 1)
	assert.Equal(t, 1, b.CurrentIndex())
}

func TestYesNoDialogEndToEnd(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		dialog: &protocol.DialogRequest{
			Kind:         protocol.KindYesNo,
			Title:        "Install extras?",
			Text:         "Proceed?",
			ResponsePath: "/tmp/addon_dialog_9.resp",
		},
	}
	b, _, fs := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p) // start
	b.Tick(p) // surface dialog

	require.Len(t, p.yesNoTitles, 1, "exactly one blocking choice modal")
	assert.Equal(t, "Install extras?", p.yesNoTitles[0])
	_, pending := r.PendingDialog()
	assert.False(t, pending, "request consumed on surfacing")

	// user picks yes
	p.lastYesNo(true)
	assert.Equal(t, "0", readFile(t, fs, "/tmp/addon_dialog_9.resp"))

	// script resumes and exits cleanly
	r.done = true
	b.Tick(p)
	require.True(t, b.Finished())
	assert.True(t, b.Results()[0].Success)

	// no second modal ever appeared
	assert.Len(t, p.yesNoTitles, 1)
}

func TestYesNoCancelWritesDecline(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		dialog: &protocol.DialogRequest{
			Kind:         protocol.KindYesNo,
			ResponsePath: "/tmp/r.resp",
		},
	}
	b, _, fs := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)
	require.NotNil(t, p.lastYesNo)
	p.lastYesNo(false)
	assert.Equal(t, "1", readFile(t, fs, "/tmp/r.resp"))
}

func TestMsgBoxAcknowledgedOnClose(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		dialog: &protocol.DialogRequest{
			Kind:         protocol.KindMsgBox,
			Title:        "Note",
			Text:         "line one\nline two",
			ResponsePath: "/tmp/m.resp",
		},
	}
	b, _, fs := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)

	require.Len(t, p.infos, 1)
	assert.Equal(t, []string{"line one", "line two"}, p.infoLines[0])
	require.NotNil(t, p.lastOnClose, "msgbox dismissal must write the response")

	// nothing written until the user dismisses
	_, err := afero.ReadFile(fs, "/tmp/m.resp")
	require.Error(t, err)

	p.lastOnClose()
	assert.Equal(t, "0", readFile(t, fs, "/tmp/m.resp"))
}

func TestInfoBoxShownWithoutResponseWrite(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		dialog: &protocol.DialogRequest{
			Kind:         protocol.KindInfoBox,
			Title:        "Working",
			Text:         "hold on",
			ResponsePath: "/tmp/i.resp",
		},
	}
	b, _, fs := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)

	require.Len(t, p.infos, 1)
	// the script self-answered; the host must not write anything
	assert.Nil(t, p.lastOnClose)
	exists, err := afero.Exists(fs, "/tmp/i.resp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChecklistResponses(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		dialog: &protocol.DialogRequest{
			Kind:         protocol.KindChecklist,
			Title:        "Components",
			ResponsePath: "/tmp/c.resp",
			Items: []protocol.Item{
				{Tag: "core", Label: "Core", Checked: true},
				{Tag: "docs", Label: "Docs"},
			},
		},
	}
	b, _, fs := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)
	require.Len(t, p.checklists, 1)

	p.lastChecklist([]string{"core", "docs"}, true)
	assert.Equal(t, `"core" "docs"`, readFile(t, fs, "/tmp/c.resp"))
}

func TestChecklistCancelWritesEmpty(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		dialog: &protocol.DialogRequest{
			Kind:         protocol.KindChecklist,
			ResponsePath: "/tmp/c.resp",
		},
	}
	b, _, fs := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)
	require.NotNil(t, p.lastChecklist)
	p.lastChecklist(nil, false)
	assert.Empty(t, readFile(t, fs, "/tmp/c.resp"))
}

func TestMenuSelectionSurfacedOnceAndAnsweredOverStdin(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		menu: &protocol.MenuRequest{
			Title: "Pick version",
			Options: []protocol.MenuOption{
				{Key: "stable", Label: "Stable"},
				{Key: "beta", Label: "Beta"},
			},
		},
	}
	b, _, _ := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)
	b.Tick(p)

	// surfaced exactly once despite repeated ticks
	require.Len(t, p.menuSelections, 1)

	p.lastSelection("beta")
	assert.Equal(t, []string{"beta"}, r.menuAnswers)
}

func TestDetectedURLsShownOncePerJobCappedAtTen(t *testing.T) {
	t.Parallel()

	var urls []string
	for i := range 15 {
		urls = append(urls, "https://example.com/auth/"+string(rune('a'+i)))
	}
	r := &fakeRunner{detectedURLs: urls}
	b, _, _ := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)
	b.Tick(p)

	require.Len(t, p.infos, 1)
	assert.Equal(t, "App", p.infos[0])
	require.Len(t, p.infoLines[0], 10)
	// the ten most recent
	assert.Equal(t, urls[5], p.infoLines[0][0])
	assert.Equal(t, urls[14], p.infoLines[0][9])
}

func TestTerminalDialogShownAfterJobDone(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		done: true,
		dialog: &protocol.DialogRequest{
			Kind:  protocol.KindMsgBox,
			Title: "Install complete",
			Text:  "Restart the frontend to see the new entry",
		},
	}
	b, _, _ := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)

	require.True(t, b.Finished())
	require.Len(t, p.infos, 1)
	assert.Equal(t, "Install complete", p.infos[0])
}

func TestSuccessfulJobTailURLsShown(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		done: true,
		lines: []string{
			"installing...",
			"Visit https://example.com/setup to finish configuration",
			"done",
		},
	}
	b, _, _ := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)

	require.Len(t, p.infos, 1)
	assert.Equal(t, "App", p.infos[0])
	assert.Equal(t,
		[]string{"Visit https://example.com/setup to finish configuration"},
		p.infoLines[0])
}

func TestFailedJobShowsNoTailURLs(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{
		done:     true,
		exitCode: 1,
		lines:    []string{"see https://example.com/help"},
	}
	b, _, _ := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	p := &fakePresenter{}

	b.Tick(p)
	b.Tick(p)

	assert.Empty(t, p.infos)
	assert.False(t, b.Results()[0].Success)
}

func TestUninstallJobReportsHistory(t *testing.T) {
	t.Parallel()

	runners := map[string]*fakeRunner{
		"Moonlight (Uninstall)": {done: true, exitCode: 0},
		"Sunshine (Uninstall)":  {done: true, exitCode: 1},
	}
	jobs := []Job{
		NewJob("Moonlight (Uninstall)", "u1"),
		NewJob("Sunshine (Uninstall)", "u2"),
	}
	b, hist, _ := newTestBatch(jobs, runners)
	p := &fakePresenter{}

	for range 10 {
		b.Tick(p)
	}

	require.True(t, b.Finished())
	// only the successful uninstall clears history, and neither is
	// recorded as an install
	assert.Equal(t, []string{"Moonlight"}, hist.uninstalled)
	assert.Empty(t, hist.installed)
}

func TestSpawnFailureRecordsFailedResult(t *testing.T) {
	t.Parallel()

	jobs := []Job{NewJob("Broken", "x"), NewJob("Works", "y")}
	b, _, _ := newTestBatch(jobs, map[string]*fakeRunner{
		"Works": {done: true, exitCode: 0},
	})
	p := &fakePresenter{}

	for range 10 {
		b.Tick(p)
	}

	require.True(t, b.Finished())
	results := b.Results()
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Equal(t, -1, results[0].ExitCode)
	assert.True(t, results[1].Success)
}

func TestKillCurrentForwardsToRunner(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	b, _, _ := newTestBatch([]Job{NewJob("App", "x")}, map[string]*fakeRunner{"App": r})
	b.Tick(&fakePresenter{})

	b.KillCurrent()
	assert.True(t, r.killed)
}
