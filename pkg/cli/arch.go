// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the small set of identifiers shared between the core
// binary's own bootstrap and the plugin layer: the build platform/arch
// pair and the builtin plugin's own identity.
package cli

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch represents a platform_arch pair, e.g. "linux_amd64".
type Arch string

// BuildArch returns the running binary's platform/arch pair.
func BuildArch() Arch {
	return Arch(fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH))
}

// IsWindows reports whether a is a Windows arch.
func (a Arch) IsWindows() bool {
	return a.OS() == "windows"
}

// OS returns the platform half of a.
func (a Arch) OS() string {
	parts := strings.SplitN(string(a), "_", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[0]
}

// Arch returns the arch half of a.
func (a Arch) Arch() string {
	parts := strings.SplitN(string(a), "_", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// String returns a as a plain string.
func (a Arch) String() string {
	return string(a)
}
