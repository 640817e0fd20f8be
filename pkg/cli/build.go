// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

// PluginDescriptorFileName is the manifest every linked or installed
// plugin package must carry at its root (spec section 3's PluginManifest,
// applied per-package by pkg/pluginmanager).
const PluginDescriptorFileName = "plugin.yaml"
