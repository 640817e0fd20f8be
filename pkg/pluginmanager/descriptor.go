// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/forgecli/forge/pkg/apperrors"
	"github.com/forgecli/forge/pkg/cli"
)

// descriptorFileName declares the commands a plugin package exports
// without requiring the core to load its code (spec section 3's
// PluginManifest rationale, applied per-package rather than only in the
// process-wide cache).
const descriptorFileName = cli.PluginDescriptorFileName

// descriptor is the on-disk shape of a plugin package's plugin.yaml.
type descriptor struct {
	Name        string              `yaml:"name"`
	Version     string              `yaml:"version"`
	Description string              `yaml:"description,omitempty"`
	Commands    []descriptorCommand `yaml:"commands"`
}

type descriptorCommand struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description,omitempty"`
	Hidden      bool     `yaml:"hidden,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
}

// readDescriptor parses path/plugin.yaml, the probe step spec section 4.7
// calls "probe the installed module for a commands export."
func readDescriptor(path string) (*descriptor, error) {
	b, err := os.ReadFile(filepath.Join(path, descriptorFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &apperrors.InvalidPluginError{Name: filepath.Base(path), Reason: "missing plugin.yaml"}
		}
		return nil, errors.Wrapf(err, "reading descriptor for %s", path)
	}

	var d descriptor
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, &apperrors.InvalidPluginError{Name: filepath.Base(path), Reason: "invalid plugin.yaml: " + err.Error()}
	}
	if d.Name == "" || len(d.Commands) == 0 {
		return nil, &apperrors.InvalidPluginError{Name: filepath.Base(path), Reason: "plugin.yaml declares no commands"}
	}
	return &d, nil
}

// toPluginRecord converts a parsed descriptor rooted at path into a
// PluginRecord whose commands are dispatched by shelling out to
// path/bin/run, the convention every plugin package (linked or
// npm-installed) must follow.
func toPluginRecord(kind, path string, d *descriptor) PluginRecord {
	commands := make([]CommandRecord, 0, len(d.Commands))
	for _, c := range d.Commands {
		cmd := c
		commands = append(commands, CommandRecord{
			ID:          cmd.ID,
			Topic:       topicOf(cmd.ID),
			Description: cmd.Description,
			Hidden:      cmd.Hidden,
			Aliases:     cmd.Aliases,
			Run:         runnerFor(path, cmd.ID),
		})
	}
	return PluginRecord{
		Type:     kind,
		Name:     d.Name,
		Version:  d.Version,
		Path:     path,
		Topics:   synthesizeTopics(commands),
		Commands: commands,
	}
}

// runnerFor builds the CommandFunc that invokes a plugin's bin/run script,
// forwarding the resolved commandID as argv[0] and the rest of argv after
// it. Plugins are out-of-process packages (spec section 6's
// node_modules/<plugin> layout), so dispatch into them is always a
// subprocess call, never an in-process function pointer.
func runnerFor(pluginPath, commandID string) CommandFunc {
	return func(ctx context.Context, args []string) error {
		runScript := filepath.Join(pluginPath, "bin", "run")
		cmdArgs := append([]string{commandID}, args...)
		cmd := exec.CommandContext(ctx, runScript, cmdArgs...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
		if err := cmd.Run(); err != nil {
			return errors.Wrapf(err, "running plugin command %s", commandID)
		}
		return nil
	}
}
