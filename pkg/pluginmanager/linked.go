// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/forgecli/forge/pkg/logx"
)

const linksFileName = "links.yaml"

// linkRegistry is the on-disk {name: path} map written by Link and read by
// LinkedProvider, distinct from the installed-package registry so that
// `plugins:link` never touches package.json (spec section 4.7: "no
// dependency install").
type linkRegistry struct {
	Links map[string]string `yaml:"links"`
}

// LinkedProvider serves plugins registered via `plugins:link <path>`: a
// symbolic entry pointing at a local directory, re-read on every init.
type LinkedProvider struct {
	dataDir string
}

// NewLinkedProvider binds a LinkedProvider to dataDir, the directory its
// link registry lives in (typically paths.Paths.UserPluginsDir()).
func NewLinkedProvider(dataDir string) *LinkedProvider {
	return &LinkedProvider{dataDir: dataDir}
}

// Type implements Provider.
func (p *LinkedProvider) Type() string { return "linked" }

func (p *LinkedProvider) registryPath() string {
	return filepath.Join(p.dataDir, linksFileName)
}

// Load implements Provider. A single broken link is logged and skipped
// rather than failing the whole load (spec section 7, PluginLoadError).
func (p *LinkedProvider) Load(_ context.Context) ([]PluginRecord, error) {
	reg, err := p.readRegistry()
	if err != nil {
		return nil, err
	}

	records := make([]PluginRecord, 0, len(reg.Links))
	for name, path := range reg.Links {
		d, err := readDescriptor(path)
		if err != nil {
			logx.Warningf("%v", &pluginLoadWarning{Name: name, Err: err})
			continue
		}
		records = append(records, toPluginRecord("linked", path, d))
	}
	return records, nil
}

func (p *LinkedProvider) readRegistry() (*linkRegistry, error) {
	b, err := os.ReadFile(p.registryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &linkRegistry{Links: map[string]string{}}, nil
		}
		return nil, errors.Wrapf(err, "reading %s", p.registryPath())
	}
	var reg linkRegistry
	if err := yaml.Unmarshal(b, &reg); err != nil {
		return nil, errors.Wrap(err, "decoding link registry")
	}
	if reg.Links == nil {
		reg.Links = map[string]string{}
	}
	return &reg, nil
}

// Link records path under name in the link registry and returns the
// parsed descriptor so the caller can confirm the link is usable before
// the PluginManager re-inits.
func (p *LinkedProvider) Link(name, path string) (*descriptor, error) {
	d, err := readDescriptor(path)
	if err != nil {
		return nil, err
	}

	reg, err := p.readRegistry()
	if err != nil {
		return nil, err
	}
	reg.Links[name] = path

	if err := os.MkdirAll(p.dataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", p.dataDir)
	}
	out, err := yaml.Marshal(reg)
	if err != nil {
		return nil, errors.Wrap(err, "encoding link registry")
	}
	if err := os.WriteFile(p.registryPath(), out, 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", p.registryPath())
	}
	return d, nil
}

// Unlink removes name from the link registry.
func (p *LinkedProvider) Unlink(name string) error {
	reg, err := p.readRegistry()
	if err != nil {
		return err
	}
	delete(reg.Links, name)

	out, err := yaml.Marshal(reg)
	if err != nil {
		return errors.Wrap(err, "encoding link registry")
	}
	return os.WriteFile(p.registryPath(), out, 0o644)
}

// pluginLoadWarning adapts a descriptor-load error into the PluginLoadError
// shape spec section 7 names, without making the whole Load call fail.
type pluginLoadWarning struct {
	Name string
	Err  error
}

func (w *pluginLoadWarning) Error() string {
	return errors.Wrapf(w.Err, "plugin %q failed to load", w.Name).Error()
}
