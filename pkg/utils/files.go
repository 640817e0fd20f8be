// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package utils contains small filesystem and URL helpers shared by the
// release and plugin layers.
package utils

import "os"

// PathExists returns true if path exists, following symlinks.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
