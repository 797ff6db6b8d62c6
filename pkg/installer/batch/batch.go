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

// Package batch sequences installer jobs one at a time and bridges
// their pending dialog requests to the presentation layer. The UI loop
// calls Tick once per frame; the batch never blocks, it only inspects
// runner state and arms callbacks.
package batch

import (
	"strings"

	"github.com/RetroAddonsProject/retro-addons/pkg/catalog"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/handshake"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/protocol"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/runner"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/wrap"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// maxShownURLs caps the mid-install URL notification.
	maxShownURLs = 10
	// terminalURLScan is how far back the tail is searched for URLs to
	// show after a successful job.
	terminalURLScan = 20
)

// Job is one queued installer execution.
type Job struct {
	Name    string
	Command string
	ID      uuid.UUID
}

func NewJob(name, command string) Job {
	return Job{ID: uuid.New(), Name: name, Command: command}
}

// Result records a finished job.
type Result struct {
	Job      Job
	Tail     []string
	ExitCode int
	Success  bool
}

// JobRunner is the per-job process state the batch polls. Implemented
// by runner.Runner; faked in tests.
type JobRunner interface {
	Done() bool
	ExitCode() (int, bool)
	Lines() []string
	Tail() []string
	PendingDialog() (protocol.DialogRequest, bool)
	ClearDialog()
	PendingMenu() (req protocol.MenuRequest, ok, surfaced bool)
	MarkMenuSurfaced()
	AnswerMenu(key string) error
	DetectedURLs() []string
	URLsShown() bool
	MarkURLsShown()
	Kill()
}

// History receives per-job outcomes. Implemented by history.Store.
type History interface {
	MarkInstalled(name string, success bool) error
	MarkUninstalled(name string) error
}

// Presenter is the external presentation layer. Blocking modals
// deliver the user's decision through the armed callback; the batch
// itself never waits.
type Presenter interface {
	// ShowInfo displays a non-blocking informational modal. onClose
	// may be nil; when set it runs once the user dismisses the modal.
	ShowInfo(title string, lines []string, onClose func())
	ShowYesNo(title, text string, respond func(yes bool))
	ShowMenu(title, text string, items []protocol.Item, respond func(tag string, ok bool))
	ShowChecklist(title, text string, items []protocol.Item, respond func(tags []string, ok bool))
	ShowMenuSelection(title string, options []protocol.MenuOption, respond func(key string))
}

// StartFunc launches the runner for a job.
type StartFunc func(Job) (JobRunner, error)

// DefaultStart wraps the job command with the shell prelude and spawns
// a real process runner.
func DefaultStart(opts wrap.Options, maxLines int) StartFunc {
	return func(j Job) (JobRunner, error) {
		r := runner.New(maxLines)
		if err := r.Start(wrap.Command(j.Name, j.Command, opts)); err != nil {
			return nil, err
		}
		return r, nil
	}
}

// Batch runs a list of jobs strictly sequentially. currentIndex only
// ever advances; finished becomes true exactly when it reaches the end.
type Batch struct {
	responder *handshake.Responder
	history   History
	start     StartFunc
	runner    JobRunner
	jobs      []Job
	results   []Result
	current   int
	started   bool
	finished  bool
}

func New(jobs []Job, responder *handshake.Responder, history History, start StartFunc) *Batch {
	b := &Batch{
		jobs:      jobs,
		responder: responder,
		history:   history,
		start:     start,
	}
	if len(jobs) == 0 {
		b.finished = true
	}
	return b
}

// Tick advances the batch by one poll. Call from the UI loop, once per
// frame.
func (b *Batch) Tick(p Presenter) {
	if b.finished {
		return
	}

	if b.started && b.runner != nil && !b.runner.Done() {
		b.surfaceMenu(p)
		b.surfaceURLs(p)
		b.surfaceDialog(p)
	}

	switch {
	case !b.started:
		b.startCurrent()
	case b.runner != nil && b.runner.Done():
		b.finishCurrent(p)
	}
}

// surfaceMenu hands a pending menu selection request to the UI exactly
// once; the reply goes straight to the child's stdin.
func (b *Batch) surfaceMenu(p Presenter) {
	req, ok, surfaced := b.runner.PendingMenu()
	if !ok || surfaced {
		return
	}

	r := b.runner
	p.ShowMenuSelection(req.Title, req.Options, func(key string) {
		if err := r.AnswerMenu(key); err != nil {
			log.Error().Err(err).Msg("error sending menu response")
		}
	})
	b.runner.MarkMenuSurfaced()
}

// surfaceURLs shows important detected URLs once per job while the
// install keeps running underneath.
func (b *Batch) surfaceURLs(p Presenter) {
	if b.runner.URLsShown() {
		return
	}
	urls := b.runner.DetectedURLs()
	if len(urls) == 0 {
		return
	}
	if len(urls) > maxShownURLs {
		urls = urls[len(urls)-maxShownURLs:]
	}
	p.ShowInfo(b.jobs[b.current].Name, urls, nil)
	b.runner.MarkURLsShown()
}

// surfaceDialog hands the pending dialog request to the UI and arms
// the response-file callback. The request is consumed on surfacing so
// it is not re-shown every tick; the script stays blocked until the
// callback writes the response.
func (b *Batch) surfaceDialog(p Presenter) {
	req, ok := b.runner.PendingDialog()
	if !ok {
		return
	}

	resp := b.responder
	lines := strings.Split(req.Text, "\n")

	switch req.Kind {
	case protocol.KindMsgBox:
		p.ShowInfo(req.Title, lines, func() {
			if err := resp.Acknowledge(req.ResponsePath); err != nil {
				log.Error().Err(err).Msg("error writing msgbox response")
			}
		})
	case protocol.KindInfoBox:
		// the script already answered itself and moved on; the modal
		// is informational only
		p.ShowInfo(req.Title, lines, nil)
	case protocol.KindYesNo:
		path := req.ResponsePath
		p.ShowYesNo(req.Title, req.Text, func(yes bool) {
			if err := resp.YesNo(path, yes); err != nil {
				log.Error().Err(err).Msg("error writing yesno response")
			}
		})
	case protocol.KindMenu:
		path := req.ResponsePath
		p.ShowMenu(req.Title, req.Text, req.Items, func(tag string, ok bool) {
			var err error
			if ok {
				err = resp.Menu(path, tag)
			} else {
				err = resp.CancelMenu(path)
			}
			if err != nil {
				log.Error().Err(err).Msg("error writing menu response")
			}
		})
	case protocol.KindChecklist:
		path := req.ResponsePath
		p.ShowChecklist(req.Title, req.Text, req.Items, func(tags []string, ok bool) {
			var err error
			if ok {
				err = resp.Checklist(path, tags)
			} else {
				err = resp.CancelMenu(path)
			}
			if err != nil {
				log.Error().Err(err).Msg("error writing checklist response")
			}
		})
	default:
		log.Warn().Str("kind", string(req.Kind)).Msg("unknown dialog kind, acknowledging")
		if err := resp.Acknowledge(req.ResponsePath); err != nil {
			log.Error().Err(err).Msg("error writing fallback response")
		}
	}

	b.runner.ClearDialog()
}

func (b *Batch) startCurrent() {
	job := b.jobs[b.current]
	log.Info().Str("job", job.Name).Int("index", b.current).Msg("starting install job")

	r, err := b.start(job)
	if err != nil {
		// treat a spawn failure like an immediately failed job
		log.Error().Err(err).Str("job", job.Name).Msg("error starting job")
		b.started = true
		b.runner = &failedRunner{}
		return
	}
	b.runner = r
	b.started = true
}

// finishCurrent records the outcome, reports it to the install
// history, surfaces any terminal message, and advances.
func (b *Batch) finishCurrent(p Presenter) {
	job := b.jobs[b.current]
	code, _ := b.runner.ExitCode()
	success := code == 0

	b.results = append(b.results, Result{
		Job:      job,
		Success:  success,
		ExitCode: code,
		Tail:     b.runner.Tail(),
	})

	if base, isUninstall := catalog.SplitUninstallJobName(job.Name); isUninstall {
		if success {
			if err := b.history.MarkUninstalled(base); err != nil {
				log.Warn().Err(err).Str("app", base).Msg("error updating install history")
			}
		}
	} else {
		if err := b.history.MarkInstalled(job.Name, success); err != nil {
			log.Warn().Err(err).Str("app", job.Name).Msg("error updating install history")
		}
	}

	// a dialog decoded but never surfaced is the installer's parting
	// message; failing that, leftover URLs in the tail are worth showing
	if req, ok := b.runner.PendingDialog(); ok && (req.Title != "" || req.Text != "") {
		title := req.Title
		if title == "" {
			title = job.Name
		}
		p.ShowInfo(title, strings.Split(req.Text, "\n"), nil)
		b.runner.ClearDialog()
	} else if success {
		if urls := tailURLs(b.runner.Lines()); len(urls) > 0 {
			p.ShowInfo(job.Name, urls, nil)
		}
	}

	log.Info().Str("job", job.Name).Bool("success", success).
		Int("exitCode", code).Msg("install job finished")

	b.current++
	b.started = false
	b.runner = nil
	if b.current >= len(b.jobs) {
		b.finished = true
	}
}

// tailURLs scans the last lines of output for anything URL-looking.
func tailURLs(lines []string) []string {
	if len(lines) > terminalURLScan {
		lines = lines[len(lines)-terminalURLScan:]
	}
	var urls []string
	for _, line := range lines {
		if strings.Contains(line, "http://") || strings.Contains(line, "https://") {
			urls = append(urls, strings.TrimSpace(line))
		}
	}
	return urls
}

// KillCurrent soft-terminates the running job. The caller abandons the
// batch afterwards; queued jobs are discarded, not executed.
func (b *Batch) KillCurrent() {
	if b.runner != nil {
		b.runner.Kill()
	}
}

// Finished reports whether every job has been recorded.
func (b *Batch) Finished() bool { return b.finished }

// Results returns the outcomes recorded so far.
func (b *Batch) Results() []Result {
	out := make([]Result, len(b.results))
	copy(out, b.results)
	return out
}

// CurrentIndex is the index of the job being run, equal to len(jobs)
// once the batch has finished.
func (b *Batch) CurrentIndex() int { return b.current }

// Jobs returns the batch's job list.
func (b *Batch) Jobs() []Job { return b.jobs }

// CurrentJob returns the in-progress job, if the batch is not finished.
func (b *Batch) CurrentJob() (Job, bool) {
	if b.finished || b.current >= len(b.jobs) {
		return Job{}, false
	}
	return b.jobs[b.current], true
}

// Lines returns the visible output log of the running job.
func (b *Batch) Lines() []string {
	if b.runner == nil {
		return nil
	}
	return b.runner.Lines()
}

// failedRunner stands in for a job whose process could not even spawn.
type failedRunner struct{}

func (*failedRunner) Done() bool                                      { return true }
func (*failedRunner) ExitCode() (int, bool)                           { return -1, true }
func (*failedRunner) Lines() []string                                 { return nil }
func (*failedRunner) Tail() []string                                  { return nil }
func (*failedRunner) PendingDialog() (protocol.DialogRequest, bool)   { return protocol.DialogRequest{}, false }
func (*failedRunner) ClearDialog()                                    {}
func (*failedRunner) PendingMenu() (protocol.MenuRequest, bool, bool) { return protocol.MenuRequest{}, false, false }
func (*failedRunner) MarkMenuSurfaced()                               {}
func (*failedRunner) AnswerMenu(string) error                         { return runner.ErrNotRunning }
func (*failedRunner) DetectedURLs() []string                          { return nil }
func (*failedRunner) URLsShown() bool                                 { return true }
func (*failedRunner) MarkURLsShown()                                  {}
func (*failedRunner) Kill()                                           {}
