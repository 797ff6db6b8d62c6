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

// Package handshake writes dialog answers to the response files the
// generated shell prelude polls for. The write is a plain overwrite,
// not an atomic rename: the shell side is the only reader, deletes the
// file immediately after reading, and blocks until the file exists, so
// the half-written window is accepted for parity with the original
// protocol.
package handshake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	// AnswerOK acknowledges message boxes and accepts yesno dialogs.
	AnswerOK = "0"
	// AnswerCancel declines a yesno dialog.
	AnswerCancel = "1"
)

// Responder writes responses through an injectable filesystem.
type Responder struct {
	fs afero.Fs
}

func NewResponder(fs afero.Fs) *Responder {
	return &Responder{fs: fs}
}

// write puts content into the response file, unblocking the script's
// poll loop. Failures are logged by callers' choice; the script will
// keep polling until the job is killed.
func (r *Responder) write(path, content string) error {
	if path == "" {
		return errors.New("empty response path")
	}
	if err := afero.WriteFile(r.fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("error writing response file: %w", err)
	}
	log.Debug().Str("path", path).Str("response", content).Msg("wrote dialog response")
	return nil
}

// Acknowledge dismisses a message box.
func (r *Responder) Acknowledge(path string) error {
	return r.write(path, AnswerOK)
}

// YesNo answers a yesno dialog. Only exactly "0" maps to yes on the
// shell side; anything else is treated as no.
func (r *Responder) YesNo(path string, yes bool) error {
	if yes {
		return r.write(path, AnswerOK)
	}
	return r.write(path, AnswerCancel)
}

// Menu answers a menu dialog with the chosen tag, or cancels with an
// empty response (the shell side maps empty to a failure return).
func (r *Responder) Menu(path, tag string) error {
	return r.write(path, tag)
}

// CancelMenu cancels a menu or checklist dialog.
func (r *Responder) CancelMenu(path string) error {
	return r.write(path, "")
}

// Checklist answers a checklist dialog with the selected tags in their
// original item order, serialized the way dialog(1) reports them.
func (r *Responder) Checklist(path string, tags []string) error {
	return r.write(path, FormatChecklist(tags))
}

// FormatChecklist serializes selected tags as quoted space-joined
// tokens; zero selections serialize to an empty string.
func FormatChecklist(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tags))
	for _, tag := range tags {
		quoted = append(quoted, `"`+tag+`"`)
	}
	return strings.Join(quoted, " ")
}

// DeferredKillPending reports whether an installer tried to kill the
// frontend mid-batch and the action was deferred via the sentinel.
func (r *Responder) DeferredKillPending(sentinelPath string) bool {
	exists, err := afero.Exists(r.fs, sentinelPath)
	if err != nil {
		log.Warn().Err(err).Str("path", sentinelPath).Msg("error checking deferred-kill sentinel")
		return false
	}
	return exists
}

// ClearDeferredKill removes the sentinel once the deferred action has
// been replayed.
func (r *Responder) ClearDeferredKill(sentinelPath string) error {
	if err := r.fs.Remove(sentinelPath); err != nil {
		return fmt.Errorf("error removing deferred-kill sentinel: %w", err)
	}
	return nil
}
