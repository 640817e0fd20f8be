// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"

	"github.com/forgecli/forge/pkg/cli"
)

// BuiltinProvider serves the fixed set of commands compiled into the core
// binary itself (update, plugins:*, version, help, debug:errlog). Unlike
// linked and user providers it never touches disk: its records are
// supplied by the caller at construction time, typically cmd/forge's
// command table.
type BuiltinProvider struct {
	records []PluginRecord
}

// NewBuiltinProvider wraps a fixed list of command records as a single
// synthetic "builtin" plugin.
func NewBuiltinProvider(commands []CommandRecord) *BuiltinProvider {
	topics := synthesizeTopics(commands)
	return &BuiltinProvider{records: []PluginRecord{{
		Type:     "builtin",
		Name:     cli.CoreName,
		Version:  cli.CoreVersion(),
		Commands: commands,
		Topics:   topics,
	}}}
}

// Type implements Provider.
func (p *BuiltinProvider) Type() string { return "builtin" }

// Load implements Provider.
func (p *BuiltinProvider) Load(_ context.Context) ([]PluginRecord, error) {
	return p.records, nil
}
