// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Command forge is the process bootstrap: wire Config through every
// subsystem, run the autoupdater's background check, initialize the
// merged plugin catalog, and dispatch argv to whichever command resolves.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/forgecli/forge/pkg/autoupdater"
	"github.com/forgecli/forge/pkg/buildinfo"
	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/command"
	"github.com/forgecli/forge/pkg/dispatcher"
	"github.com/forgecli/forge/pkg/helprenderer"
	"github.com/forgecli/forge/pkg/logx"
	"github.com/forgecli/forge/pkg/paths"
	"github.com/forgecli/forge/pkg/pluginmanager"
	"github.com/forgecli/forge/pkg/release"
	"github.com/forgecli/forge/pkg/updater"
)

// defaultChannel is the release track this binary is built from absent
// any override; production builds set this via -ldflags the same way
// buildinfo.Version is set.
var defaultChannel = "stable"

// aliases maps a canonical command ID to every alias that resolves to it
// (spec section 3's Config.aliases, spec section 4.7's unalias).
var aliases = map[string][]string{
	"plugins:uninstall": {"plugins:unlink", "unlink"},
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cliconfig.New("forge", buildinfo.Version, defaultChannel, "releases.forgecli.dev", "help", aliases)
	logx.SetVerbose(cfg.Verbose)

	p := paths.New(cfg)
	logx.Debugf("resolved data dir %s, cache dir %s", cfg.DataDir, cfg.CacheDir)

	client := release.NewClient(cfg, p)
	upd := updater.New(cfg, p, client)
	auto := autoupdater.New(cfg, p)

	deps := &command.Deps{
		Cfg:         cfg,
		Paths:       p,
		Updater:     upd,
		Autoupdater: auto,
		Linked:      pluginmanager.NewLinkedProvider(p.UserPluginsDir()),
		User:        pluginmanager.NewUserProvider(p.UserPluginsDir(), p.UserPluginsManifest(), p.PluginLockFile()),
	}

	builtin := pluginmanager.NewBuiltinProvider(command.BuiltinCommands(deps))
	manager := pluginmanager.New(cfg.Aliases, builtin, deps.Linked, deps.User)
	deps.Manager = manager
	deps.Renderer = helprenderer.New(manager, cfg)

	ctx := context.Background()

	// Data flow order: Autoupdater decides before PluginManager reads the
	// catalog. It only spawns a detached updater and does not wait for it,
	// so this invocation keeps running from the tree it started in.
	if !cfg.UpdateDisabled && !isAutoupdateInvocation(cfg.Argv) {
		logx.Debugf("running autoupdater check")
		auto.Run(ctx, upd, false)
	}

	if err := manager.Init(ctx); err != nil {
		logx.Errorf("initializing plugin catalog: %v", err)
		return dispatcher.ExitError
	}

	logx.Debugf("dispatching argv %v", cfg.Argv)
	result := dispatcher.Dispatch(ctx, cfg.Argv, cfg.DefaultCommand, manager, deps.Renderer)
	if result.Err != nil {
		reportError(p, result.Err)
	}
	return result.ExitCode
}

// isAutoupdateInvocation reports whether argv is itself the detached
// `update --autoupdate` child, which must never trigger another
// Autoupdater.Run of its own.
func isAutoupdateInvocation(argv []string) bool {
	for _, a := range argv {
		if a == "--" {
			return false
		}
		if a == "--autoupdate" {
			return true
		}
	}
	return false
}

// reportError prints err to stderr and appends it to the error log (spec
// section 5), matching the uncaught-error path of spec section 7.
func reportError(p *paths.Paths, err error) {
	logx.Error(err)

	f, openErr := os.OpenFile(p.ErrLogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if openErr != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%v\n", err)
}
