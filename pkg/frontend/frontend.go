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

// Package frontend talks to the EmulationStation HTTP API and replays
// the deferred actions the installer shims recorded during a batch.
package frontend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/RetroAddonsProject/retro-addons/pkg/helpers/command"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/handshake"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/wrap"
	"github.com/rs/zerolog/log"
)

// Client is a minimal EmulationStation HTTP API client.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) request(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("frontend api returned status %d", resp.StatusCode)
	}
	return nil
}

// ReloadGames asks the frontend to rescan its game lists.
func (c *Client) ReloadGames(ctx context.Context) error {
	return c.request(ctx, "/reloadgames")
}

// Notify shows a popup message inside the frontend.
func (c *Client) Notify(ctx context.Context, msg string) error {
	return c.request(ctx, "/notify?"+url.Values{"message": {msg}}.Encode())
}

// EmuKill asks the frontend to stop the running emulator.
func (c *Client) EmuKill(ctx context.Context) error {
	return c.request(ctx, "/emukill")
}

// Finisher replays the deferred end-of-batch action: either the kill
// an installer requested mid-batch, or a plain game list refresh.
type Finisher struct {
	responder *handshake.Responder
	client    *Client
	exec      command.Executor
	tempDir   string
	process   string
}

func NewFinisher(
	responder *handshake.Responder,
	client *Client,
	exec command.Executor,
	tempDir string,
	process string,
) *Finisher {
	return &Finisher{
		responder: responder,
		client:    client,
		exec:      exec,
		tempDir:   tempDir,
		process:   process,
	}
}

// Finish runs once after a batch completes, before the app exits. If
// an installer's kill of the frontend was deferred, replay it now with
// force: the install expects the frontend to restart and pick up new
// entries. Otherwise just refresh the game lists.
func (f *Finisher) Finish(ctx context.Context) {
	sentinel := wrap.SentinelPath(f.tempDir)

	if f.responder.DeferredKillPending(sentinel) {
		log.Info().Str("process", f.process).Msg("running deferred frontend kill")
		if err := f.exec.Run(ctx, "killall", "-9", f.process); err != nil {
			log.Warn().Err(err).Msg("deferred frontend kill failed")
		}
		if err := f.responder.ClearDeferredKill(sentinel); err != nil {
			log.Warn().Err(err).Msg("could not remove deferred-kill sentinel")
		}
		return
	}

	log.Info().Msg("refreshing frontend game lists")
	if err := f.client.ReloadGames(ctx); err != nil {
		log.Warn().Err(err).Msg("could not refresh frontend game lists")
	}
}
