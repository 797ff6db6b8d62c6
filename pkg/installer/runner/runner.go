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

// Package runner executes one installer job as a child bash process
// and classifies its combined output line by line: dialog markers,
// menu markers, or plain log. A single reader goroutine is the only
// writer of the runner's state; the UI thread polls it once per frame.
package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/RetroAddonsProject/retro-addons/pkg/installer/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxLines bounds the in-memory log tail.
	DefaultMaxLines = 1000
	// tailLines is how much output is kept for failure reporting.
	tailLines = 10
)

var ErrNotRunning = errors.New("job is not running")

// Runner drives a single job's child process. The zero value is not
// usable; call New.
type Runner struct {
	id       uuid.UUID
	maxLines int

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu           sync.Mutex
	lines        []string
	tail         []string
	lastLine     string
	started      bool
	done         bool
	exitCode     int
	dialog       *protocol.DialogRequest
	menu         *protocol.MenuRequest
	menuAnswered bool
	detectedURLs []string
	urlsShown    bool
}

func New(maxLines int) *Runner {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Runner{
		id:       uuid.New(),
		maxLines: maxLines,
	}
}

// ID identifies the job run in logs.
func (r *Runner) ID() uuid.UUID { return r.id }

// Start launches the wrapped command under bash and begins streaming
// its output on a background goroutine. The trailing wait collects
// any background children the script forked.
func (r *Runner) Start(command string) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("job already started")
	}
	r.started = true
	r.mu.Unlock()

	// the status must be captured before reaping background children:
	// wait with no jobs left returns 0 and would mask the script's code
	cmd := exec.Command("bash", "-c", fmt.Sprintf("(%s); rc=$?; wait; exit $rc", command))

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("error opening stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error opening stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting job process: %w", err)
	}

	r.cmd = cmd
	r.stdin = stdin

	go r.read(stdout)

	return nil
}

// read consumes the combined output until EOF, then records the exit
// code and marks the job done. It is the sole writer of runner state.
func (r *Runner) read(out io.Reader) {
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		r.appendLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Stringer("job", r.id).Msg("error reading job output")
	}

	exitCode := 0
	if err := r.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			log.Warn().Err(err).Stringer("job", r.id).Msg("error waiting for job process")
			exitCode = -1
		}
	}

	r.mu.Lock()
	r.exitCode = exitCode
	r.done = true
	r.mu.Unlock()

	log.Info().Stringer("job", r.id).Int("exitCode", exitCode).Msg("job process finished")
}

// appendLine classifies one line of output. Marker lines become the
// job's pending request and never reach the visible log; decode
// failures are logged and the line is dropped, they must not abort
// processing of later lines.
func (r *Runner) appendLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if protocol.IsDialogMarker(line) {
		req, err := protocol.DecodeDialog(line)
		if err != nil {
			log.Debug().Err(err).Stringer("job", r.id).Msg("ignoring malformed dialog marker")
			return
		}
		r.dialog = &req
		return
	}

	if protocol.IsMenuMarker(line) {
		req, err := protocol.DecodeMenu(line)
		if err != nil {
			log.Debug().Err(err).Stringer("job", r.id).Msg("ignoring malformed menu marker")
			return
		}
		if r.menu == nil {
			r.menu = &req
			r.menuAnswered = false
		}
		return
	}

	r.lines = append(r.lines, line)
	if len(r.lines) > r.maxLines {
		r.lines = r.lines[len(r.lines)-r.maxLines:]
	}

	r.tail = append(r.tail, line)
	if len(r.tail) > tailLines {
		r.tail = r.tail[len(r.tail)-tailLines:]
	}

	if important, context := detectURL(line, r.lastLine); important {
		if context {
			r.detectedURLs = append(r.detectedURLs, trimmed(r.lastLine))
		}
		r.detectedURLs = append(r.detectedURLs, trimmed(line))
	}
	r.lastLine = line
}

// Kill sends a soft terminate to the child. Installer scripts spawn
// children of their own, so no force-kill escalation is attempted.
func (r *Runner) Kill() {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil || done {
		return
	}
	if err := cmd.Process.Signal(softKillSignal); err != nil {
		log.Debug().Err(err).Stringer("job", r.id).Msg("error terminating job process")
	}
}

// Done reports whether the child process has exited.
func (r *Runner) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// ExitCode returns the child's exit code once Done.
func (r *Runner) ExitCode() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode, r.done
}

// Lines returns a copy of the bounded output log.
func (r *Runner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Tail returns the last few lines of output for failure reporting.
func (r *Runner) Tail() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tail))
	copy(out, r.tail)
	return out
}

// PendingDialog returns the current dialog request, if any. The
// producing script is blocked on its response file, so at most one
// request is pending at a time.
func (r *Runner) PendingDialog() (protocol.DialogRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dialog == nil {
		return protocol.DialogRequest{}, false
	}
	return *r.dialog, true
}

// ClearDialog consumes the pending dialog request once the response
// has been written.
func (r *Runner) ClearDialog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialog = nil
}

// PendingMenu returns the current menu selection request, if any, and
// whether it has already been surfaced to the user.
func (r *Runner) PendingMenu() (protocol.MenuRequest, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.menu == nil {
		return protocol.MenuRequest{}, false, false
	}
	return *r.menu, true, r.menuAnswered
}

// MarkMenuSurfaced flags the menu request so it is not re-surfaced
// every tick while the modal is open.
func (r *Runner) MarkMenuSurfaced() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menuAnswered = true
}

// AnswerMenu writes the chosen key to the child's stdin and consumes
// the request. If the script never reads it, the write just buffers.
func (r *Runner) AnswerMenu(key string) error {
	r.mu.Lock()
	stdin := r.stdin
	r.menu = nil
	r.mu.Unlock()

	if stdin == nil {
		return ErrNotRunning
	}
	if _, err := io.WriteString(stdin, key+"\n"); err != nil {
		return fmt.Errorf("error writing menu response to stdin: %w", err)
	}
	return nil
}

// DetectedURLs returns the important-looking URLs found in output so
// far, most recent last.
func (r *Runner) DetectedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.detectedURLs))
	copy(out, r.detectedURLs)
	return out
}

// URLsShown reports whether the one-shot URL modal has fired.
func (r *Runner) URLsShown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.urlsShown
}

// MarkURLsShown arms the one-shot so URLs surface at most once per job.
func (r *Runner) MarkURLsShown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urlsShown = true
}
