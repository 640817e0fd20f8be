// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgecli/forge/pkg/buildinfo"
)

// newVersionCmd prints the CLI's user-agent string (spec section 6:
// "version — print user-agent string"). --verbose adds the build commit
// SHA and build date on top.
func newVersionCmd(deps *Deps) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), deps.Cfg.UserAgent())
			if !verbose {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\nbuilt: %s\n", buildinfo.SHA, buildinfo.Date)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print build commit and build date")
	return cmd
}
