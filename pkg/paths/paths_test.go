// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgecli/forge/pkg/cliconfig"
)

func testConfig() *cliconfig.Config {
	return &cliconfig.Config{
		Bin:      "forge",
		Name:     "forge",
		DataDir:  "/data",
		CacheDir: "/cache",
		Windows:  false,
	}
}

func TestPathsArePureFunctionsOfConfig(t *testing.T) {
	p := New(testConfig())

	assert.Equal(t, filepath.Join("/cache", "autoupdate"), p.AutoupdateFile())
	assert.Equal(t, filepath.Join("/cache", "autoupdate.log"), p.AutoupdateLogFile())
	assert.Equal(t, filepath.Join("/cache", "update.lock"), p.UpdateLockFile())
	assert.Equal(t, filepath.Join("/cache", "plugins.lock"), p.PluginLockFile())
	assert.Equal(t, filepath.Join("/cache", "stable.version"), p.VersionFile("stable"))
	assert.Equal(t, filepath.Join("/data", "client"), p.ClientRoot())
	assert.Equal(t, filepath.Join("/data", "client", "1.2.3"), p.ClientVersionRoot("1.2.3"))
	assert.Equal(t, filepath.Join("/data", "client", "1.2.3", "bin", "forge"), p.ClientVersionBin("1.2.3"))
	assert.Equal(t, filepath.Join("/data", "client", "bin", "forge"), p.ClientBin())
	assert.Equal(t, filepath.Join("/data", "plugins"), p.UserPluginsDir())
	assert.Equal(t, filepath.Join("/data", "plugins", "plugins_manifest.yaml"), p.UserPluginsManifest())
	assert.Equal(t, filepath.Join("/cache", "errlog"), p.ErrLogFile())
}

func TestWindowsPathsUseCmdAndExeSuffixes(t *testing.T) {
	cfg := testConfig()
	cfg.Windows = true
	p := New(cfg)

	assert.Equal(t, filepath.Join("/data", "client", "1.2.3", "bin", "forge.exe"), p.ClientVersionBin("1.2.3"))
	assert.Equal(t, filepath.Join("/data", "client", "bin", "forge.cmd"), p.ClientBin())
}
