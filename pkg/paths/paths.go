// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paths computes the absolute, per-user filesystem locations the
// rest of the core reads from and writes to. Every function here is a pure
// function of a cliconfig.Config; none perform I/O, mirroring the teacher's
// pkg/common defaults which are likewise plain path derivations off xdg
// roots (see pkg/common/defaults.go in the retrieved corpus).
package paths

import (
	"path/filepath"

	"github.com/forgecli/forge/pkg/cliconfig"
)

const (
	autoupdateFileName    = "autoupdate"
	autoupdateLogFileName = "autoupdate.log"
	updateLockFileName    = "update.lock"
	pluginsLockFileName   = "plugins.lock"
	clientDirName         = "client"
	clientBinDirName      = "bin"
	pluginsDirName        = "plugins"
	pluginsManifestName   = "plugins_manifest.yaml"
)

// Paths derives every filesystem location the core needs from a Config.
type Paths struct {
	cfg *cliconfig.Config
}

// New returns a Paths bound to cfg.
func New(cfg *cliconfig.Config) *Paths {
	return &Paths{cfg: cfg}
}

// AutoupdateFile is the zero-byte marker whose mtime records the last
// autoupdate attempt.
func (p *Paths) AutoupdateFile() string {
	return filepath.Join(p.cfg.CacheDir, autoupdateFileName)
}

// AutoupdateLogFile receives the timestamped spawn log of the detached
// updater process.
func (p *Paths) AutoupdateLogFile() string {
	return filepath.Join(p.cfg.CacheDir, autoupdateLogFileName)
}

// UpdateLockFile is the reader/writer lockfile guarding the client tree.
func (p *Paths) UpdateLockFile() string {
	return filepath.Join(p.cfg.CacheDir, updateLockFileName)
}

// PluginLockFile is the reader/writer lockfile guarding user plugin
// install/remove/update operations.
func (p *Paths) PluginLockFile() string {
	return filepath.Join(p.cfg.CacheDir, pluginsLockFileName)
}

// VersionFile is the cached Version JSON document for a given channel.
func (p *Paths) VersionFile(channel string) string {
	return filepath.Join(p.cfg.CacheDir, channel+".version")
}

// ClientRoot is the directory under which every release tree
// (clientRoot/<version>/bin/<binName>) and the stable bin symlink live.
func (p *Paths) ClientRoot() string {
	return filepath.Join(p.cfg.DataDir, clientDirName)
}

// ClientVersionRoot is the release tree directory for a specific version.
func (p *Paths) ClientVersionRoot(version string) string {
	return filepath.Join(p.ClientRoot(), version)
}

// ClientVersionBin is the path to the CLI binary inside a specific
// version's release tree.
func (p *Paths) ClientVersionBin(version string) string {
	return filepath.Join(p.ClientVersionRoot(version), clientBinDirName, p.cfg.BinName())
}

// ClientBin is the stable symlink (or, on Windows, copy/shim) that always
// resolves into the current release tree.
func (p *Paths) ClientBin() string {
	return filepath.Join(p.ClientRoot(), clientBinDirName, p.cfg.StableBinName())
}

// UserPluginsDir is the root of the user-installed plugin package tree.
func (p *Paths) UserPluginsDir() string {
	return filepath.Join(p.cfg.DataDir, pluginsDirName)
}

// UserPluginsManifest is the on-disk PluginManifest cache.
func (p *Paths) UserPluginsManifest() string {
	return filepath.Join(p.UserPluginsDir(), pluginsManifestName)
}

// ErrLogFile is the append-only, log-chopped error log (spec section 5).
func (p *Paths) ErrLogFile() string {
	return filepath.Join(p.cfg.CacheDir, "errlog")
}
