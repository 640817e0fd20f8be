// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/forgecli/forge/pkg/pluginmanager"
)

// leafSpec pairs a CommandRecord's static metadata with the cobra.Command
// that actually implements it.
type leafSpec struct {
	id          string
	description string
	hidden      bool
	aliases     []string
	cmd         *cobra.Command
}

// toRecord wraps a cobra leaf as a pluginmanager.CommandRecord: Run parses
// argv through the leaf's own flag set and executes it, BuildHelp
// delegates to the same leaf's usage template (spec section 4.9's "a
// command's own BuildHelp" delegation).
func (s leafSpec) toRecord() pluginmanager.CommandRecord {
	cmd := s.cmd
	return pluginmanager.CommandRecord{
		ID:          s.id,
		Topic:       topicOf(s.id),
		Description: s.description,
		Hidden:      s.hidden,
		Aliases:     s.aliases,
		Run: func(ctx context.Context, args []string) error {
			// cobra substitutes os.Args for a nil slice; an empty one keeps
			// parsing confined to the argv the Dispatcher handed over.
			if args == nil {
				args = []string{}
			}
			cmd.SetArgs(args)
			return cmd.ExecuteContext(ctx)
		},
		BuildHelp: func() string {
			return cmd.UsageString()
		},
	}
}

func topicOf(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return ""
}

// BuiltinCommands returns the full CommandRecord table of spec section 6's
// CLI surface. deps.Manager and deps.Renderer are read lazily at Run time,
// so callers may pass a Deps whose Manager/Renderer fields are still nil
// at this call site and fill them in afterward, once the catalog that
// depends on this very table has been built.
func BuiltinCommands(deps *Deps) []pluginmanager.CommandRecord {
	specs := []leafSpec{
		{id: "update", description: "Update the CLI to the latest release", cmd: newUpdateCmd(deps)},
		{id: "plugins", description: "List installed plugins", cmd: newPluginsCmd(deps)},
		{id: "plugins:install", description: "Install a plugin package", cmd: newPluginsInstallCmd(deps)},
		{id: "plugins:link", description: "Register a local directory as a plugin", cmd: newPluginsLinkCmd(deps)},
		{id: "plugins:uninstall", description: "Remove a linked or installed plugin", aliases: []string{"plugins:unlink", "unlink"}, cmd: newPluginsUninstallCmd(deps)},
		{id: "plugins:update", description: "Upgrade every installed plugin", cmd: newPluginsUpdateCmd(deps)},
		{id: "version", description: "Print the CLI version", cmd: newVersionCmd(deps)},
		{id: "help", description: "Show help for a topic or command", cmd: newHelpCmd(deps)},
		{id: "debug:errlog", description: "Print the error log", hidden: true, cmd: newDebugErrlogCmd(deps)},
	}

	records := make([]pluginmanager.CommandRecord, 0, len(specs))
	for _, s := range specs {
		records = append(records, s.toRecord())
	}
	return records
}
