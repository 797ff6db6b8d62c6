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

// Package wrap builds the shell prelude that is injected ahead of an
// installer script before it runs. The prelude overrides dialog(1) and
// a handful of system commands at shell-function and PATH level so the
// script's interactive prompts surface as marker lines (see the
// protocol package) instead of blocking on a terminal UI this host
// does not provide.
//
// The generated code must stay POSIX-portable where possible: it
// executes inside an arbitrary third-party script's own interpreter
// context. export -f is a bashism, but installer scripts on these
// systems are invariably run with bash.
package wrap

import (
	"fmt"
	"path"
	"strings"

	"github.com/RetroAddonsProject/retro-addons/pkg/installer/protocol"
)

const (
	// SentinelName is the flag file the kill shims create instead of
	// terminating the frontend. Checked once the whole batch is done.
	SentinelName = "addon_frontend_kill_deferred"

	// ShimLogName records every intercepted kill call for debugging.
	ShimLogName = "addon_shim.log"
)

// Options controls what the prelude intercepts.
type Options struct {
	// TempDir holds response files, the shim bin dir and the sentinel.
	TempDir string
	// ReloadURL is the frontend refresh endpoint whose curl calls are
	// deferred until the batch completes.
	ReloadURL string
	// DeferProcess is the critical foreground process whose kill is
	// recorded in the sentinel file rather than executed.
	DeferProcess string
	// CriticalProcesses are never killed mid-install. Must include
	// DeferProcess.
	CriticalProcesses []string
	// WrapDialogs enables the dialog() override. When false, scripts
	// calling dialog(1) will block forever on a missing terminal, so
	// this is only disabled for debugging.
	WrapDialogs bool
}

// DefaultOptions matches a stock Batocera-style system.
func DefaultOptions() Options {
	return Options{
		TempDir:           "/tmp",
		ReloadURL:         "127.0.0.1:1234/reloadgames",
		DeferProcess:      "emulationstation",
		CriticalProcesses: []string{"emulationstation", "pcmanfm"},
		WrapDialogs:       true,
	}
}

// SentinelPath returns the deferred-kill flag file location.
func SentinelPath(tempDir string) string {
	return path.Join(tempDir, SentinelName)
}

// Command produces the full command string for a job: prelude, start
// marker, the (possibly rewritten) install command, end marker.
//
// A "curl ... | bash" pipeline is rewritten to fetch the script to a
// temp file and source it inside a subshell that defines the
// overrides. Function definitions exported across a pipe are not
// reliably visible on the right-hand side in every shell, so fetch
// and execution must be decoupled for the overrides to take effect
// inside the script's own scope.
func Command(name, cmd string, opts Options) string {
	prelude := Prelude(opts)
	start := fmt.Sprintf("echo '[addons] Starting install: %s'", quoteSingle(name))
	end := "echo '[addons] Install finished'"

	if curlPart, ok := splitRemotePipe(cmd); ok {
		return strings.Join([]string{
			start,
			`TMPSCRIPT=$(mktemp)`,
			fmt.Sprintf(`%s > "$TMPSCRIPT" || exit $?`, curlPart),
			fmt.Sprintf(`( %s source "$TMPSCRIPT" )`, prelude),
			`rm -f "$TMPSCRIPT"`,
			end,
		}, "; ")
	}

	return fmt.Sprintf("%s%s; %s; %s", prelude, start, cmd, end)
}

// splitRemotePipe detects a fetch-piped-to-shell command and returns
// the fetch half.
func splitRemotePipe(cmd string) (string, bool) {
	if !strings.Contains(cmd, "curl") ||
		!strings.Contains(cmd, "|") ||
		!strings.Contains(cmd, "bash") {
		return "", false
	}
	curlPart, _, ok := strings.Cut(cmd, "|")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(curlPart), true
}

// Prelude returns just the override definitions, each fragment
// terminated with "; " so it can prefix any command.
func Prelude(opts Options) string {
	var b strings.Builder
	if opts.WrapDialogs {
		b.WriteString(dialogOverride(opts))
	}
	b.WriteString(curlShim(opts))
	b.WriteString(overlayShim())
	b.WriteString(interactiveShims())
	b.WriteString(processShims(opts))
	return b.String()
}

// dialogOverride reimplements enough of dialog(1)'s argument parsing
// to recover the box type, title, body and item list, then emits a
// marker on stderr and blocks polling for the response file. infobox
// never waits: it answers itself and returns immediately.
func dialogOverride(opts Options) string {
	respFile := path.Join(opts.TempDir, "addon_dialog_$$.resp")
	return `function dialog(){ ` +
		`local dtype="" title="" text="" menu_items=""; ` +
		`local next_title=0 next_text=0 skip_count=0 skip_backtitle=0; ` +
		`for arg in "$@"; do ` +
		`case "$arg" in ` +
		`--title) next_title=1 ;; ` +
		`--backtitle) skip_backtitle=1 ;; ` +
		`--msgbox) dtype="msgbox"; next_text=1 ;; ` +
		`--infobox) dtype="infobox"; next_text=1 ;; ` +
		`--yesno) dtype="yesno"; next_text=1 ;; ` +
		`--menu) dtype="menu"; next_text=1 ;; ` +
		`--checklist) dtype="checklist"; next_text=1 ;; ` +
		`--stdout|--clear) ;; ` +
		`*) ` +
		`if [ $skip_backtitle -eq 1 ]; then skip_backtitle=0; ` +
		`elif [ $next_title -eq 1 ]; then title="$arg"; next_title=0; ` +
		`elif [ $next_text -eq 1 ]; then text="$arg"; next_text=0; skip_count=3; ` +
		`elif [ $skip_count -gt 0 ]; then skip_count=$((skip_count - 1)); ` +
		`elif [ "$dtype" = "menu" ] || [ "$dtype" = "checklist" ]; then ` +
		`if [ -z "$menu_items" ]; then menu_items="$arg"; else menu_items="$menu_items|$arg"; fi; ` +
		`fi ;; ` +
		`esac; ` +
		`done; ` +
		`if [ -n "$dtype" ]; then ` +
		`local resp_file="` + respFile + `"; rm -f "$resp_file"; ` +
		`if command -v base64 >/dev/null 2>&1; then ` +
		`t_b64=$(printf %s "$title" | base64 -w0 2>/dev/null || printf %s "$title" | base64); ` +
		`m_b64=$(printf %s "$text" | base64 -w0 2>/dev/null || printf %s "$text" | base64); ` +
		`i_b64=$(printf %s "$menu_items" | base64 -w0 2>/dev/null || printf %s "$menu_items" | base64); ` +
		`echo ` + protocol.DialogMarker + ` type=$dtype title_b64=$t_b64 text_b64=$m_b64 items_b64=$i_b64 resp=$resp_file >&2; ` +
		`else ` +
		`echo ` + protocol.DialogMarker + ` type=$dtype title="$title" text="$text" items="$menu_items" resp=$resp_file >&2; ` +
		`fi; ` +
		`if [ "$dtype" = "infobox" ]; then ` +
		`echo 0 > "$resp_file"; sleep 0.05; rm -f "$resp_file"; return 0; ` +
		`fi; ` +
		`while [ ! -f "$resp_file" ]; do sleep 0.1; done; ` +
		`local result=$(cat "$resp_file"); rm -f "$resp_file"; ` +
		`if [ "$dtype" = "yesno" ]; then ` +
		`if [ "$result" = "0" ]; then return 0; else return 1; fi; ` +
		`elif [ "$dtype" = "menu" ] || [ "$dtype" = "checklist" ]; then ` +
		`if [ -n "$result" ]; then echo "$result"; return 0; else return 1; fi; ` +
		`else ` +
		`return 0; ` +
		`fi; ` +
		`fi; ` +
		`return 0; }; export -f dialog; `
}

// curlShim no-ops frontend refresh calls so the game list reloads once
// at the end of the batch instead of mid-install.
func curlShim(opts Options) string {
	return `function curl(){ ` +
		`if echo "$@" | grep -q '` + opts.ReloadURL + `'; then ` +
		`echo '[addons] Deferring frontend refresh until batch complete'; return 0; ` +
		`else command curl "$@"; fi; }; ` +
		`export -f curl; `
}

// overlayShim suppresses the reboot suggestion printed by the overlay
// save tool while keeping the rest of its output.
func overlayShim() string {
	return `function batocera-save-overlay(){ ` +
		`echo '[addons] Saving overlay...'; ` +
		`command batocera-save-overlay "$@" 2>&1 | grep -v 'reboot'; ` +
		`return 0; }; ` +
		`export -f batocera-save-overlay; `
}

// interactiveShims neutralize terminal/GUI prompt tools the host does
// not provide, so scripts that reach for them never block.
func interactiveShims() string {
	var b strings.Builder
	for _, tool := range []string{"whiptail", "zenity", "kdialog", "xdialog"} {
		fmt.Fprintf(&b,
			`function %s(){ echo '[addons] Auto-answering %s prompt'; return 0; }; export -f %s; `,
			tool, tool, tool)
	}
	return b.String()
}

// processShims installs killall/pkill wrappers in a temp bin dir
// prepended to PATH, so direct executable invocations are intercepted
// as well as shell-function calls. Kills aimed at critical processes
// are blocked; a kill of the deferred process is recorded in the
// sentinel file and replayed after the batch.
func processShims(opts Options) string {
	shimLog := path.Join(opts.TempDir, ShimLogName)
	sentinel := SentinelPath(opts.TempDir)

	// the heredoc body is quoted: $REAL, $@ and $arg must survive
	// until the shim itself runs
	shimBody := func(tool string) string {
		var b strings.Builder
		b.WriteString("{ echo '#!/bin/sh'; echo \"REAL=$REAL_" + strings.ToUpper(tool) + "\"; cat <<'EOF'\n")
		b.WriteString(`echo "$(date) [addons-shim] ` + tool + `: $@" >> ` + shimLog + "\n")
		b.WriteString("for arg in \"$@\"; do\n")
		for _, proc := range opts.CriticalProcesses {
			b.WriteString(`if [ "$arg" = "` + proc + `" ]; then` + "\n")
			b.WriteString(`echo "[addons] Blocked ` + tool + ` for critical process: $arg"` + "\n")
			if proc == opts.DeferProcess {
				b.WriteString(`touch ` + sentinel + "\n")
			}
			b.WriteString("exit 0\nfi\n")
		}
		b.WriteString("done\n")
		b.WriteString(`exec "$REAL" "$@"` + "\n")
		b.WriteString("EOF\n")
		b.WriteString(`} > "$ADDON_TMPBIN/` + tool + `"; `)
		return b.String()
	}

	return `REAL_KILLALL=$(command -v killall || echo /usr/bin/killall); ` +
		`REAL_PKILL=$(command -v pkill || echo /usr/bin/pkill); ` +
		`ADDON_TMPBIN=$(mktemp -d ` + path.Join(opts.TempDir, "addon_bin.XXXX") + `); ` +
		shimBody("killall") +
		shimBody("pkill") +
		`chmod +x "$ADDON_TMPBIN/killall" "$ADDON_TMPBIN/pkill"; ` +
		`trap 'rm -rf "$ADDON_TMPBIN"' EXIT; ` +
		`export PATH="$ADDON_TMPBIN:$PATH"; ` +
		`function desktop(){ echo '[addons] Blocked desktop mode switch during install'; return 0; }; export -f desktop; `
}

// quoteSingle escapes s for interpolation inside single quotes.
func quoteSingle(s string) string {
	return strings.ReplaceAll(s, `'`, `'\''`)
}
