// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/forgecli/forge/pkg/apperrors"
)

// newPluginsCmd lists every plugin currently in the merged catalog: name,
// version, type and origin path (spec section 3's PluginRecord). --all
// additionally prints each plugin's topics.
func newPluginsCmd(deps *Deps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plugins := deps.Manager.ListPlugins()
			if len(plugins) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no plugins installed")
				return nil
			}
			for _, p := range plugins {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %-8s %s\n", p.Name, p.Version, p.Type, p.Path)
				if !all {
					continue
				}
				var topicNames []string
				for _, t := range p.Topics {
					topicNames = append(topicNames, t.Name)
				}
				if len(topicNames) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  topics: %s\n", strings.Join(topicNames, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also print each plugin's topics")
	return cmd
}

// splitNameTag splits a `<name>[@<tag>]` argument, honoring a leading "@"
// scope marker (as in "@scope/name@tag") by only treating a later "@" as
// the tag separator.
func splitNameTag(arg string) (name, tag string) {
	idx := strings.LastIndex(arg, "@")
	if idx <= 0 {
		return arg, ""
	}
	return arg[:idx], arg[idx+1:]
}

// newPluginsInstallCmd implements spec section 4.7's install operation.
func newPluginsInstallCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins:install <name>[@<tag>]",
		Short: "Install a plugin package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, tag := splitNameTag(args[0])
			return deps.User.Install(cmd.Context(), name, tag)
		},
	}
}

// newPluginsLinkCmd implements spec section 4.7's link operation. The
// local directory's own basename becomes the registry key; the
// descriptor's declared name is kept as the PluginRecord.Name surfaced in
// the catalog.
func newPluginsLinkCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins:link <path>",
		Short: "Register a local directory as a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			name := filepath.Base(filepath.Clean(path))
			_, err := deps.Linked.Link(name, path)
			return err
		},
	}
}

// newPluginsUninstallCmd implements spec section 4.7's remove operation,
// dispatching to whichever provider actually owns name: a linked entry is
// unlinked, an installed package is removed via the package manager. A
// builtin command can never be uninstalled.
func newPluginsUninstallCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugins:uninstall <name>",
		Aliases: []string{"unlink"},
		Short:   "Remove a linked or installed plugin",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			for _, p := range deps.Manager.ListPlugins() {
				if p.Name != name {
					continue
				}
				switch p.Type {
				case "linked":
					return deps.Linked.Unlink(name)
				case "user":
					return deps.User.Remove(cmd.Context(), name)
				default:
					return errors.Errorf("%s is a builtin plugin and cannot be removed", name)
				}
			}
			return &apperrors.InvalidPluginError{Name: name, Reason: "not installed"}
		},
	}
	return cmd
}

// newPluginsUpdateCmd implements spec section 4.7's update operation.
func newPluginsUpdateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins:update",
		Short: "Upgrade every installed plugin to its latest tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.User.Update(cmd.Context())
		},
	}
}
