// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import "github.com/spf13/cobra"

// newUpdateCmd implements the `update [channel] [--autoupdate]` leaf of
// spec section 6's CLI surface. A bare invocation always proceeds (manual
// update, spec section 4.5.2); --autoupdate marks this as the detached
// child an Autoupdater.Run spawned, which first waits out the child-side
// debounce window (spec section 4.6) before updating.
func newUpdateCmd(deps *Deps) *cobra.Command {
	var isAutoupdate bool

	cmd := &cobra.Command{
		Use:   "update [channel]",
		Short: "Update the CLI to the latest release",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := deps.Cfg.Channel
			if len(args) > 0 {
				channel = args[0]
			}

			if isAutoupdate {
				if err := deps.Autoupdater.WaitOutDebounce(cmd.Context()); err != nil {
					return err
				}
				return deps.Updater.Update(cmd.Context(), channel, false)
			}
			return deps.Updater.Update(cmd.Context(), channel, true)
		},
	}
	cmd.Flags().BoolVar(&isAutoupdate, "autoupdate", false, "run as the detached autoupdate worker (internal)")
	_ = cmd.Flags().MarkHidden("autoupdate")
	return cmd
}
