// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cliconfig defines the process-wide configuration value threaded
// through every other package's constructors. There is deliberately no
// package-level mutable config here: callers build a Config once (typically
// in cmd/forge/main.go) and pass it down explicitly.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/forgecli/forge/pkg/cli"
)

// Config is the read-only configuration consumed by the update, autoupdate
// and plugin subsystems. Fields map 1:1 onto spec section 3's Config shape.
type Config struct {
	// Bin is the name the CLI is invoked as on PATH (e.g. "forge").
	Bin string
	// Name is the product/application name used to build cache and data
	// directory names and the remote channel path.
	Name string
	// Version is the currently running binary's version.
	Version string
	// Channel is the release track this binary was built from ("stable",
	// "beta", ...).
	Channel string
	// Platform is the runtime.GOOS value ("linux", "darwin", "windows").
	Platform string
	// Arch is the runtime.GOARCH value ("amd64", "arm64").
	Arch string
	// Windows is true when Platform == "windows"; kept as a bool field
	// because several call sites branch on it directly rather than
	// re-deriving it from Platform.
	Windows bool
	// DataDir is the root of persistent CLI state: release trees and
	// installed plugins.
	DataDir string
	// CacheDir is the root of ephemeral/advisory CLI state: lockfiles,
	// cached version/manifest documents, the autoupdate marker and log.
	CacheDir string
	// UpdateDisabled, when true, makes binPath resolution always fall back
	// to CLI_BINPATH/PATH rather than the self-managed client tree.
	UpdateDisabled bool
	// S3Host is the base host serving channel manifests, version files and
	// release archives.
	S3Host string
	// Argv is the argv vector following the binary name, as handed to the
	// Dispatcher.
	Argv []string
	// DefaultCommand is resolved when Argv is empty.
	DefaultCommand string
	// Aliases maps a canonical command ID to its alias list.
	Aliases map[string][]string
	// Verbose enables logx.Debugf output, set from the <BIN>_DEBUG
	// environment variable (spec section 6's "DEBUG-style verbosity
	// selector").
	Verbose bool
	// HideUpdateMessage suppresses Updater.WarnIfUpdateAvailable's output,
	// set from CLI_ENGINE_HIDE_UPDATED_MESSAGE (spec section 6).
	HideUpdateMessage bool
}

// UserAgent is the value every outbound HTTP request MUST send as its
// User-Agent header (spec section 4.3).
func (c *Config) UserAgent() string {
	return fmt.Sprintf("%s/%s %s-%s", c.Name, c.Version, c.Platform, c.Arch)
}

// EnvPrefix returns the upper-cased, dash-to-underscore form of Bin used to
// namespace environment variables the autoupdater sets on its spawned child
// (<BIN>_TIMESTAMPS, <BIN>_SKIP_ANALYTICS).
func (c *Config) EnvPrefix() string {
	return strings.ToUpper(strings.ReplaceAll(c.Bin, "-", "_"))
}

// BinName returns the executable file name for the CLI binary inside a
// release tree, appending the platform-specific suffix.
func (c *Config) BinName() string {
	if c.Windows {
		return c.Bin + ".exe"
	}
	return c.Bin
}

// StableBinName returns the file name used for the stable ClientBin
// handoff point. On POSIX this is a symlink sharing BinName; on Windows,
// per spec section 9's design note, it is a .cmd shim rather than a
// symbolic link, since symlinks require elevated privileges on legacy
// Windows.
func (c *Config) StableBinName() string {
	if c.Windows {
		return c.Bin + ".cmd"
	}
	return c.Bin
}

// New builds a Config from the running process's environment and the
// build-time values baked into the binary (name, version, channel). It does
// not perform any I/O beyond reading environment variables.
func New(name, version, channel, s3Host, defaultCommand string, aliases map[string][]string) *Config {
	arch := cli.BuildArch()
	platform := arch.OS()
	cfg := &Config{
		Bin:               name,
		Name:              name,
		Version:           version,
		Channel:           channel,
		Platform:          platform,
		Arch:              arch.Arch(),
		Windows:           arch.IsWindows(),
		DataDir:           filepath.Join(xdg.DataHome, "."+name),
		CacheDir:          filepath.Join(xdg.CacheHome, "."+name),
		UpdateDisabled:    os.Getenv(envPrefix(name)+"_DISABLE_UPDATE") != "",
		S3Host:            s3Host,
		Argv:              os.Args[1:],
		DefaultCommand:    defaultCommand,
		Aliases:           aliases,
		Verbose:           os.Getenv(envPrefix(name)+"_DEBUG") != "",
		HideUpdateMessage: os.Getenv("CLI_ENGINE_HIDE_UPDATED_MESSAGE") != "",
	}
	return cfg
}

func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
