// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pluginmanager implements spec section 4.7: a tree of providers
// (builtin, linked, user) whose topics and command IDs are merged into a
// single catalog the Dispatcher and HelpRenderer consume.
package pluginmanager

import "context"

// CommandFunc is a runnable leaf command.
type CommandFunc func(ctx context.Context, args []string) error

// CommandRecord describes one dispatchable command (spec section 3).
type CommandRecord struct {
	ID          string
	Topic       string
	Description string
	Hidden      bool
	Aliases     []string
	Run         CommandFunc
	// BuildHelp, when set, renders this command's own help text instead of
	// HelpRenderer's default flags/args/description layout (spec section
	// 4.9: "delegated to the command if it defines buildHelp").
	BuildHelp func() string
}

// TopicRecord describes one help/dispatch grouping (spec section 3).
type TopicRecord struct {
	Name        string
	Description string
	Hidden      bool
	CommandIDs  []string
}

// PluginRecord describes one loaded plugin, regardless of which provider
// produced it (spec section 3: "providers differ only in type and their
// origin path; merge semantics are identical").
type PluginRecord struct {
	Type       string // "builtin", "linked", or "user"
	Name       string
	Version    string
	Path       string
	Topics     []TopicRecord
	Commands   []CommandRecord
}

// Provider is one source of plugins. Providers are merged in registration
// order (builtin < linked < user), which is also the catalog's precedence
// order on a commandID collision (spec section 3's invariant).
type Provider interface {
	// Type identifies the provider for PluginRecord.Type and log messages.
	Type() string
	// Load returns every plugin this provider currently knows about.
	// Implementations should treat a single broken plugin as a warning
	// (spec section 7, PluginLoadError) and omit it rather than fail the
	// whole Load.
	Load(ctx context.Context) ([]PluginRecord, error)
}
