// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package helprenderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/pluginmanager"
)

func noopRun(ctx context.Context, args []string) error { return nil }

func buildCatalog(t *testing.T) *pluginmanager.Manager {
	t.Helper()
	builtin := pluginmanager.NewBuiltinProvider([]pluginmanager.CommandRecord{
		{ID: "version", Description: "print the version", Run: noopRun},
		{ID: "plugins:install", Description: "install a plugin", Run: noopRun},
		{ID: "plugins:uninstall", Description: "remove a plugin", Run: noopRun},
		{ID: "debug:errlog", Hidden: true, Run: noopRun},
	})
	m := pluginmanager.New(nil, builtin)
	require.NoError(t, m.Init(context.Background()))
	return m
}

func TestRenderEmptyListsTopicsAndRootCommands(t *testing.T) {
	m := buildCatalog(t)
	r := New(m, &cliconfig.Config{Bin: "forge"})

	out, err := r.Render("", false)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: forge [command]")
	assert.Contains(t, out, "plugins")
	assert.Contains(t, out, "version")
}

func TestRenderTopicListsItsCommands(t *testing.T) {
	m := buildCatalog(t)
	r := New(m, &cliconfig.Config{Bin: "forge"})

	out, err := r.Render("plugins", false)
	require.NoError(t, err)
	assert.Contains(t, out, "plugins:install")
	assert.Contains(t, out, "plugins:uninstall")
}

func TestRenderCommandUsesDefaultLayoutWithoutBuildHelp(t *testing.T) {
	m := buildCatalog(t)
	r := New(m, &cliconfig.Config{Bin: "forge"})

	out, err := r.Render("version", false)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: forge version")
	assert.Contains(t, out, "print the version")
}

func TestRenderCommandDelegatesToBuildHelp(t *testing.T) {
	builtin := pluginmanager.NewBuiltinProvider([]pluginmanager.CommandRecord{
		{ID: "custom", Run: noopRun, BuildHelp: func() string { return "custom help text\n" }},
	})
	m := pluginmanager.New(nil, builtin)
	require.NoError(t, m.Init(context.Background()))
	r := New(m, &cliconfig.Config{Bin: "forge"})

	out, err := r.Render("custom", false)
	require.NoError(t, err)
	assert.Equal(t, "custom help text\n", out)
}

func TestRenderUnknownSubjectIsNotFound(t *testing.T) {
	m := buildCatalog(t)
	r := New(m, &cliconfig.Config{Bin: "forge"})

	_, err := r.Render("nonexistent", false)
	assert.Error(t, err)
}
