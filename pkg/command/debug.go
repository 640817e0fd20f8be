// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newDebugErrlogCmd streams the chopped error log (spec section 5) to
// stdout, for support requests. It is hidden from help output: it is a
// debugging escape hatch, not part of the normal surface.
func newDebugErrlogCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:    "debug:errlog",
		Short:  "Print the error log",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(deps.Paths.ErrLogFile())
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return errors.Wrap(err, "opening error log")
			}
			defer f.Close()
			_, err = io.Copy(cmd.OutOrStdout(), f)
			return err
		},
	}
}
