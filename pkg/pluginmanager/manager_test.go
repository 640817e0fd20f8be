// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	kind    string
	records []PluginRecord
	err     error
}

func (s *stubProvider) Type() string { return s.kind }
func (s *stubProvider) Load(_ context.Context) ([]PluginRecord, error) {
	return s.records, s.err
}

func noopRun(ctx context.Context, args []string) error { return nil }

func TestInitIsIdempotent(t *testing.T) {
	p := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name:     "core",
		Commands: []CommandRecord{{ID: "version", Run: noopRun}},
	}}}
	m := New(nil, p)

	require.NoError(t, m.Init(context.Background()))
	p.records = nil // if Init re-ran, this would wipe the catalog
	require.NoError(t, m.Init(context.Background()))

	_, ok := m.FindCommand("version")
	assert.True(t, ok)
}

func TestUserPrecedenceOverBuiltinOnCollision(t *testing.T) {
	builtin := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name:     "core",
		Commands: []CommandRecord{{ID: "widget:build", Description: "builtin version", Run: noopRun}},
	}}}
	user := &stubProvider{kind: "user", records: []PluginRecord{{
		Name:     "widget",
		Commands: []CommandRecord{{ID: "widget:build", Description: "user version", Run: noopRun}},
	}}}
	m := New(nil, builtin, user)
	require.NoError(t, m.Init(context.Background()))

	c, ok := m.FindCommand("widget:build")
	require.True(t, ok)
	assert.Equal(t, "user version", c.Description)
}

func TestUnaliasResolvesToCanonicalAndDoesNotChain(t *testing.T) {
	builtin := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name:     "core",
		Commands: []CommandRecord{{ID: "plugins:install", Run: noopRun}},
	}}}
	aliases := map[string][]string{"plugins:install": {"pi"}}
	m := New(aliases, builtin)
	require.NoError(t, m.Init(context.Background()))

	c, ok := m.FindCommand("pi")
	require.True(t, ok)
	assert.Equal(t, "plugins:install", c.ID)

	_, ok = m.FindCommand("not-an-alias")
	assert.False(t, ok)
}

func TestSynthesizesMissingTopicForOrphanCommand(t *testing.T) {
	builtin := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name:     "core",
		Commands: []CommandRecord{{ID: "debug:errlog", Hidden: true, Run: noopRun}},
	}}}
	m := New(nil, builtin)
	require.NoError(t, m.Init(context.Background()))

	_, ok := m.FindTopic("debug")
	assert.True(t, ok, "a topic record must be synthesized for the orphaned debug: prefix")
}

func TestCommandsForTopicExcludesHiddenAndNestedTopics(t *testing.T) {
	builtin := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name: "core",
		Commands: []CommandRecord{
			{ID: "plugins:install", Run: noopRun},
			{ID: "plugins:uninstall", Run: noopRun},
			{ID: "plugins:sub:deep", Run: noopRun},
			{ID: "plugins:hidden", Hidden: true, Run: noopRun},
		},
	}}}
	m := New(nil, builtin)
	require.NoError(t, m.Init(context.Background()))

	cmds := m.CommandsForTopic("plugins")
	ids := make([]string, len(cmds))
	for i, c := range cmds {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"plugins:install", "plugins:uninstall"}, ids)
}

func TestListRootCommandsExcludesNamespaced(t *testing.T) {
	builtin := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name: "core",
		Commands: []CommandRecord{
			{ID: "version", Run: noopRun},
			{ID: "help", Run: noopRun},
			{ID: "plugins:install", Run: noopRun},
		},
	}}}
	m := New(nil, builtin)
	require.NoError(t, m.Init(context.Background()))

	cmds := m.ListRootCommands()
	ids := make([]string, len(cmds))
	for i, c := range cmds {
		ids[i] = c.ID
	}
	assert.ElementsMatch(t, []string{"version", "help"}, ids)
}

func TestBrokenProviderIsWarningNotFatal(t *testing.T) {
	broken := &stubProvider{kind: "user", err: assertError("boom")}
	ok := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name:     "core",
		Commands: []CommandRecord{{ID: "version", Run: noopRun}},
	}}}
	m := New(nil, broken, ok)

	require.NoError(t, m.Init(context.Background()))
	_, found := m.FindCommand("version")
	assert.True(t, found)
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestListPluginsSortedByNameAcrossProviders(t *testing.T) {
	builtin := &stubProvider{kind: "builtin", records: []PluginRecord{{
		Name: "core", Version: "1.0.0",
		Commands: []CommandRecord{{ID: "version", Run: noopRun}},
	}}}
	user := &stubProvider{kind: "user", records: []PluginRecord{{
		Name: "aardvark", Version: "0.1.0",
		Commands: []CommandRecord{{ID: "aardvark:dig", Run: noopRun}},
	}}}
	m := New(nil, builtin, user)
	require.NoError(t, m.Init(context.Background()))

	plugins := m.ListPlugins()
	require.Len(t, plugins, 2)
	assert.Equal(t, "aardvark", plugins[0].Name)
	assert.Equal(t, "core", plugins[1].Name)
}
