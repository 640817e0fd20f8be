// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import "github.com/forgecli/forge/pkg/buildinfo"

// CoreName identifies the synthetic "core" plugin that carries every
// command compiled into the binary itself, as opposed to a linked or
// installed one.
const CoreName = "core"

const coreDescription = "built-in commands"

// CoreVersion is the running binary's own version, used as the core
// plugin's PluginRecord.Version.
func CoreVersion() string {
	return buildinfo.Version
}

// CoreDescription is the core plugin's PluginRecord description.
func CoreDescription() string {
	return coreDescription
}
