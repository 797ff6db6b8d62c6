//go:build linux

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

package wrap

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RetroAddonsProject/retro-addons/pkg/installer/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runShell executes a script with bash, with a stub killall/pkill on
// PATH that records its arguments instead of signalling anything.
func runShell(t *testing.T, tmp, script string) (string, error) {
	t.Helper()

	stubBin := filepath.Join(tmp, "stubbin")
	require.NoError(t, os.MkdirAll(stubBin, 0o755))
	stub := "#!/bin/sh\necho \"$@\" > " + filepath.Join(tmp, "real_called") + "\n"
	for _, tool := range []string{"killall", "pkill"} {
		require.NoError(t, os.WriteFile(filepath.Join(stubBin, tool), []byte(stub), 0o755))
	}

	cmd := exec.Command("bash", "-c", script)
	cmd.Env = append(os.Environ(), "PATH="+stubBin+":"+os.Getenv("PATH"))
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestKillShimBlocksCriticalProcessAndCreatesSentinel(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	opts := DefaultOptions()
	opts.TempDir = tmp

	out, err := runShell(t, tmp, processShims(opts)+" killall emulationstation")
	require.NoError(t, err, "shell output: %s", out)

	assert.FileExists(t, SentinelPath(tmp))
	assert.NoFileExists(t, filepath.Join(tmp, "real_called"))
	assert.Contains(t, out, "Blocked killall for critical process: emulationstation")
}

func TestKillShimPassesThroughOtherTargets(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	opts := DefaultOptions()
	opts.TempDir = tmp

	out, err := runShell(t, tmp, processShims(opts)+" killall some-background-daemon")
	require.NoError(t, err, "shell output: %s", out)

	assert.NoFileExists(t, SentinelPath(tmp))
	called, err := os.ReadFile(filepath.Join(tmp, "real_called"))
	require.NoError(t, err)
	assert.Equal(t, "some-background-daemon", strings.TrimSpace(string(called)))
}

func TestKillShimBlocksNonDeferredCriticalWithoutSentinel(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	opts := DefaultOptions()
	opts.TempDir = tmp

	out, err := runShell(t, tmp, processShims(opts)+" pkill pcmanfm")
	require.NoError(t, err, "shell output: %s", out)

	// blocked, but only the deferred process leaves a sentinel
	assert.NoFileExists(t, SentinelPath(tmp))
	assert.NoFileExists(t, filepath.Join(tmp, "real_called"))
	assert.Contains(t, out, "Blocked pkill for critical process: pcmanfm")
}

func TestDialogOverrideInfoboxSelfAnswers(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	opts := DefaultOptions()
	opts.TempDir = tmp

	script := dialogOverride(opts) +
		` dialog --title "Heads up" --infobox "Working..." 5 40; echo rc=$?`
	out, err := runShell(t, tmp, script)
	require.NoError(t, err, "shell output: %s", out)

	// marker emitted, script continued without any host response
	assert.Contains(t, out, protocol.DialogMarker+" type=infobox")
	assert.Contains(t, out, "rc=0")
}

func TestDialogOverrideYesNoHandshake(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	opts := DefaultOptions()
	opts.TempDir = tmp

	// answer the poll loop from a background subshell standing in for
	// the host UI: wait for the marker, then write "1" (decline)
	script := dialogOverride(opts) + `
resp="` + tmp + `/addon_dialog_$$.resp"
( sleep 0.3; echo 1 > "$resp" ) &
if dialog --title "Install?" --yesno "Really?" 10 60; then echo answer=yes; else echo answer=no; fi
wait`
	out, err := runShell(t, tmp, script)
	require.NoError(t, err, "shell output: %s", out)

	assert.Contains(t, out, protocol.DialogMarker+" type=yesno")
	assert.Contains(t, out, "answer=no")
}
