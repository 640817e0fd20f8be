// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package apperrors defines the typed error taxonomy of spec section 7.
// Every kind here maps to a specific exit code and message shape at the
// command layer; packages deeper in the stack only need to construct and
// wrap these, never decide exit codes themselves.
package apperrors

import "fmt"

// InvalidChannelError is returned when the remote rejects a channel name
// (observed as HTTP 403 on the manifest endpoint).
type InvalidChannelError struct {
	Channel string
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("HTTP 403: Invalid channel %s", e.Channel)
}

// NetworkError wraps a non-2xx, non-403 HTTP response.
type NetworkError struct {
	URL    string
	Status int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("HTTP %d: request to %s failed", e.Status, e.URL)
}

// IntegrityError is returned when a downloaded archive's SHA-256 does not
// match the manifest's declared digest.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("SHA mismatch: expected %s to be %s", e.Actual, e.Expected)
}

// FilesystemError wraps an I/O failure the caller must treat as fatal
// rather than retry or paper over (spec section 7: "permissions, ENOSPC —
// fatal; include path in message").
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// UnknownEntryTypeError is returned by the extractor when a tar entry is
// neither a file, a directory, nor a symlink.
type UnknownEntryTypeError struct {
	Name string
	Type byte
}

func (e *UnknownEntryTypeError) Error() string {
	return fmt.Sprintf("unknown tar entry type %q for %s", e.Type, e.Name)
}

// NotFoundError is returned by the Dispatcher when an argv vector resolves
// to neither a command nor a topic.
type NotFoundError struct {
	ID          string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s is not a %s command", e.ID, "known")
	}
	return fmt.Sprintf("%s is not a known command. Did you mean one of these?\n\t%s", e.ID, joinTab(e.Suggestions))
}

func joinTab(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += "\n\t"
		}
		out += it
	}
	return out
}

// InvalidPluginError is returned when a plugin fails to load after
// installation (its package.json edit is reverted before this is raised).
type InvalidPluginError struct {
	Name   string
	Reason string
}

func (e *InvalidPluginError) Error() string {
	return fmt.Sprintf("invalid plugin %q: %s", e.Name, e.Reason)
}

// PluginLoadError is raised for a single plugin during PluginManager.init;
// callers MUST treat this as non-fatal, logging it and omitting the plugin
// from the merged catalog (spec section 7).
type PluginLoadError struct {
	Name   string
	Reason string
}

func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("plugin %q failed to load: %s", e.Name, e.Reason)
}
