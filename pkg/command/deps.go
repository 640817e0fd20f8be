// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package command builds the fixed set of cobra.Command values backing
// the core's builtin commands (update, plugins:*, version, help,
// debug:errlog). Each one is also exposed as a pluginmanager.CommandRecord
// so the bespoke Dispatcher (spec section 4.8) resolves and runs it
// exactly like a linked or installed plugin's command, while still
// getting cobra's own flag parsing and usage templates for free on the
// leaf itself.
package command

import (
	"github.com/forgecli/forge/pkg/autoupdater"
	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/helprenderer"
	"github.com/forgecli/forge/pkg/paths"
	"github.com/forgecli/forge/pkg/pluginmanager"
	"github.com/forgecli/forge/pkg/updater"
)

// Deps wires every subsystem a builtin command's RunE might need. It is
// constructed once in cmd/forge and handed to BuiltinCommands; Manager and
// Renderer are filled in after the catalog they depend on exists, but
// every command's RunE only reads them at dispatch time, well after
// construction finishes.
type Deps struct {
	Cfg         *cliconfig.Config
	Paths       *paths.Paths
	Updater     *updater.Updater
	Autoupdater *autoupdater.Autoupdater
	Linked      *pluginmanager.LinkedProvider
	User        *pluginmanager.UserProvider

	Manager  *pluginmanager.Manager
	Renderer *helprenderer.Renderer
}
