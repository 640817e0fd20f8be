// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptorFixture(t *testing.T, dir, name string, commandIDs ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	content := "name: " + name + "\nversion: 1.0.0\ncommands:\n"
	for _, id := range commandIDs {
		content += "  - id: " + id + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, descriptorFileName), []byte(content), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "run"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
}

func TestBuiltinProviderSynthesizesTopics(t *testing.T) {
	p := NewBuiltinProvider([]CommandRecord{
		{ID: "plugins:install", Run: noopRun},
		{ID: "version", Run: noopRun},
	})
	records, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "builtin", records[0].Type)

	var topicNames []string
	for _, topic := range records[0].Topics {
		topicNames = append(topicNames, topic.Name)
	}
	assert.Contains(t, topicNames, "plugins")
}

func TestLinkedProviderLoadsRegisteredLink(t *testing.T) {
	dataDir := t.TempDir()
	pluginDir := filepath.Join(t.TempDir(), "my-widget")
	writeDescriptorFixture(t, pluginDir, "widget", "widget:build")

	p := NewLinkedProvider(dataDir)
	_, err := p.Link("widget", pluginDir)
	require.NoError(t, err)

	records, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "linked", records[0].Type)
	assert.Equal(t, "widget", records[0].Name)
	require.Len(t, records[0].Commands, 1)
	assert.Equal(t, "widget:build", records[0].Commands[0].ID)
}

func TestLinkedProviderUnlinkRemovesEntry(t *testing.T) {
	dataDir := t.TempDir()
	pluginDir := filepath.Join(t.TempDir(), "my-widget")
	writeDescriptorFixture(t, pluginDir, "widget", "widget:build")

	p := NewLinkedProvider(dataDir)
	_, err := p.Link("widget", pluginDir)
	require.NoError(t, err)
	require.NoError(t, p.Unlink("widget"))

	records, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLinkedProviderSkipsBrokenLinkWithoutFailingLoad(t *testing.T) {
	dataDir := t.TempDir()
	p := NewLinkedProvider(dataDir)

	// Manually seed a registry pointing at a nonexistent path, bypassing
	// Link's own up-front validation.
	missing := filepath.Join(t.TempDir(), "ghost")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, linksFileName),
		[]byte("links:\n  ghost: "+missing+"\n"), 0o644))

	records, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUserProviderLoadFromManifestCacheWithoutTouchingDisk(t *testing.T) {
	base := t.TempDir()
	manifestPath := filepath.Join(base, "plugins_manifest.yaml")
	lockPath := filepath.Join(base, "plugins.lock")
	up := NewUserProvider(filepath.Join(base, "plugins"), manifestPath, lockPath)

	require.NoError(t, up.cachePlugin("widget", &descriptor{
		Name:    "widget",
		Version: "2.0.0",
		Commands: []descriptorCommand{
			{ID: "widget:build"},
			{ID: "widget:test"},
		},
	}))

	records, err := up.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "widget", records[0].Name)
	assert.Equal(t, "2.0.0", records[0].Version)
	assert.Len(t, records[0].Commands, 2)
}
