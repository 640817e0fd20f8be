// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import "github.com/spf13/cobra"

// newHelpCmd implements explicit `forge help [subject] [--all]`
// invocation, the same rendering path the Dispatcher's own --help/-h
// interception uses (spec section 4.8 step 2 and section 4.9).
func newHelpCmd(deps *Deps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "help [subject]",
		Short: "Show help for a topic or command",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := ""
			if len(args) > 0 {
				subject = args[0]
			}
			out, err := deps.Renderer.Render(subject, all)
			if err != nil {
				return err
			}
			deps.Renderer.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include hidden commands")
	return cmd
}
