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

// Package protocol implements the marker line wire format used by the
// shell prelude to tunnel dialog prompts out of a running installer
// script. Markers are single lines on stderr: a fixed prefix followed
// by space-separated key=value tokens. Field values are base64 when
// the script's host has a base64 tool, raw text otherwise, so the
// decoder accepts both and prefers the _b64 variant.
package protocol

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// DialogMarker prefixes dialog requests answered via response file.
	DialogMarker = "__ADDON_DIALOG__"
	// MenuMarker prefixes menu selection requests answered via stdin.
	MenuMarker = "__ADDON_MENU__"
)

// DialogKind mirrors the dialog(1) box types the prelude understands.
type DialogKind string

const (
	KindMsgBox    DialogKind = "msgbox"
	KindInfoBox   DialogKind = "infobox"
	KindYesNo     DialogKind = "yesno"
	KindMenu      DialogKind = "menu"
	KindChecklist DialogKind = "checklist"
)

// Interactive reports whether the host must collect a real decision,
// as opposed to a message the user only dismisses.
func (k DialogKind) Interactive() bool {
	switch k {
	case KindYesNo, KindMenu, KindChecklist:
		return true
	case KindMsgBox, KindInfoBox:
		return false
	}
	return false
}

// Item is one menu or checklist row. Checked is meaningful only for
// checklist items.
type Item struct {
	Tag     string
	Label   string
	Checked bool
}

// DialogRequest is a decoded dialog marker. The script that emitted it
// is blocked polling for ResponsePath (except infobox, which
// self-answers and continues immediately).
type DialogRequest struct {
	Kind         DialogKind
	Title        string
	Text         string
	ResponsePath string
	Items        []Item
}

// MenuOption is one selectable entry of a menu selection request.
type MenuOption struct {
	Key   string
	Label string
}

// MenuRequest is a decoded menu selection marker. Unlike dialogs the
// answer is written to the child's stdin, not to a file.
type MenuRequest struct {
	Title   string
	Options []MenuOption
}

var (
	ErrNotMarker = errors.New("line is not a marker")
	ErrBadMarker = errors.New("malformed marker line")
)

// IsDialogMarker reports whether line carries a dialog request.
func IsDialogMarker(line string) bool {
	return strings.HasPrefix(line, DialogMarker)
}

// IsMenuMarker reports whether line carries a menu selection request.
func IsMenuMarker(line string) bool {
	return strings.HasPrefix(line, MenuMarker)
}

// DecodeDialog parses a dialog marker line. Unknown keys are ignored
// and missing fields decode as empty, since the producing shell code
// and this decoder evolve independently.
func DecodeDialog(line string) (DialogRequest, error) {
	if !IsDialogMarker(line) {
		return DialogRequest{}, ErrNotMarker
	}

	kv := map[string]string{}
	for _, tok := range strings.Fields(line)[1:] {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		kv[k] = v
	}

	req := DialogRequest{
		Kind:         KindMsgBox,
		ResponsePath: kv["resp"],
	}
	if t, ok := kv["type"]; ok && t != "" {
		req.Kind = DialogKind(t)
	}

	title, err := decodeField(kv, "title")
	if err != nil {
		return DialogRequest{}, err
	}
	req.Title = title

	text, err := decodeField(kv, "text")
	if err != nil {
		return DialogRequest{}, err
	}
	// scripts escape newlines so the marker stays a single line
	req.Text = strings.ReplaceAll(text, `\n`, "\n")

	rawItems, err := decodeField(kv, "items")
	if err != nil {
		return DialogRequest{}, err
	}
	req.Items = groupItems(req.Kind, rawItems)

	return req, nil
}

// decodeField prefers the base64 variant of a key when both forms are
// present, and returns empty for a field that is absent entirely.
func decodeField(kv map[string]string, key string) (string, error) {
	if v, ok := kv[key+"_b64"]; ok {
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return "", fmt.Errorf("%w: bad base64 in %s: %w", ErrBadMarker, key, err)
		}
		return string(decoded), nil
	}
	return kv[key], nil
}

// groupItems splits the pipe-joined item list into (tag, label) pairs
// for menus or (tag, label, status) triples for checklists. A trailing
// partial group keeps its tag so nothing is silently dropped.
func groupItems(kind DialogKind, raw string) []Item {
	if raw == "" {
		return nil
	}
	fields := strings.Split(raw, "|")

	stride := 2
	if kind == KindChecklist {
		stride = 3
	}

	items := make([]Item, 0, (len(fields)+stride-1)/stride)
	for i := 0; i < len(fields); i += stride {
		item := Item{Tag: fields[i]}
		if i+1 < len(fields) {
			item.Label = fields[i+1]
		}
		if stride == 3 && i+2 < len(fields) {
			item.Checked = fields[i+2] == "on"
		}
		items = append(items, item)
	}
	return items
}

// EncodeDialog renders a request back into its marker line form,
// always using the base64 variants. Used by tests and tooling; the
// production producer is the generated shell prelude.
func EncodeDialog(req DialogRequest) string {
	b64 := func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}

	parts := make([]string, 0, len(req.Items)*3)
	for _, item := range req.Items {
		parts = append(parts, item.Tag, item.Label)
		if req.Kind == KindChecklist {
			status := "off"
			if item.Checked {
				status = "on"
			}
			parts = append(parts, status)
		}
	}

	return fmt.Sprintf("%s type=%s title_b64=%s text_b64=%s items_b64=%s resp=%s",
		DialogMarker,
		req.Kind,
		b64(req.Title),
		b64(strings.ReplaceAll(req.Text, "\n", `\n`)),
		b64(strings.Join(parts, "|")),
		req.ResponsePath,
	)
}

// DecodeMenu parses a menu selection marker. The title may be quoted
// shell-style; options are comma-separated key:Label pairs.
func DecodeMenu(line string) (MenuRequest, error) {
	if !IsMenuMarker(line) {
		return MenuRequest{}, ErrNotMarker
	}

	rest := strings.TrimSpace(strings.TrimPrefix(line, MenuMarker))
	tokens, err := splitQuoted(rest)
	if err != nil {
		return MenuRequest{}, fmt.Errorf("%w: %w", ErrBadMarker, err)
	}

	kv := map[string]string{}
	for _, tok := range tokens {
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		kv[k] = v
	}

	title, hasTitle := kv["title"]
	rawOpts, hasOpts := kv["options"]
	if !hasTitle || !hasOpts {
		return MenuRequest{}, fmt.Errorf("%w: missing title or options", ErrBadMarker)
	}

	req := MenuRequest{Title: title}
	for _, opt := range strings.Split(rawOpts, ",") {
		key, label, ok := strings.Cut(opt, ":")
		if !ok {
			continue
		}
		req.Options = append(req.Options, MenuOption{
			Key:   strings.TrimSpace(key),
			Label: strings.TrimSpace(label),
		})
	}

	return req, nil
}

// splitQuoted tokenizes a string the way a POSIX shell splits words:
// whitespace separates tokens, single and double quotes group them.
// Quote characters are stripped from the result.
func splitQuoted(s string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		started bool
	)

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
