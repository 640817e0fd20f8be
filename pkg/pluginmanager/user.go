// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/forgecli/forge/pkg/apperrors"
	"github.com/forgecli/forge/pkg/catalog"
	"github.com/forgecli/forge/pkg/lock"
	"github.com/forgecli/forge/pkg/logx"
	"github.com/forgecli/forge/pkg/release"
	"github.com/forgecli/forge/pkg/utils"
)

const (
	packageJSONName = "package.json"
	yarnrcName      = ".yarnrc"
	defaultRegistry = "https://registry.npmjs.org/"
)

// packageJSON is the minimal shape of userPluginsDir/package.json this
// core manages. Unknown fields are not a concern here: this file is owned
// entirely by the core, never hand-edited (spec section 4.7).
type packageJSON struct {
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies"`
}

// UserProvider serves plugins installed as packages under userPluginsDir,
// dispatched via a manifest cache so that normal init never has to read
// plugin code or even walk node_modules (spec section 3's PluginManifest
// rationale: "allow dispatch without loading plugin code").
type UserProvider struct {
	pluginsDir string
	manifest   *catalog.Store
	lock       *lock.Lock
}

// NewUserProvider binds a UserProvider to its plugin directory, manifest
// cache path and lockfile path.
func NewUserProvider(pluginsDir, manifestPath, lockPath string) *UserProvider {
	return &UserProvider{
		pluginsDir: pluginsDir,
		manifest:   catalog.NewStore(manifestPath),
		lock:       lock.New(lockPath, lock.WithSkipOwnPid(true)),
	}
}

// Type implements Provider.
func (p *UserProvider) Type() string { return "user" }

// Load implements Provider by trusting the manifest cache rather than
// probing node_modules.
func (p *UserProvider) Load(_ context.Context) ([]PluginRecord, error) {
	m, err := p.manifest.Load()
	if err != nil {
		return nil, err
	}

	records := make([]PluginRecord, 0, len(m.Plugins))
	for name, entry := range m.Plugins {
		commands := make([]CommandRecord, 0, len(entry.CommandIDs))
		for _, id := range entry.CommandIDs {
			commands = append(commands, CommandRecord{
				ID:    id,
				Topic: topicOf(id),
				Run:   runnerFor(entry.NodePath, id),
			})
		}
		topics := make([]TopicRecord, 0, len(entry.Topics))
		for _, t := range entry.Topics {
			topics = append(topics, TopicRecord{Name: t})
		}
		records = append(records, PluginRecord{
			Type:     "user",
			Name:     name,
			Version:  entry.Version,
			Path:     entry.NodePath,
			Topics:   topics,
			Commands: commands,
		})
	}
	return records, nil
}

func (p *UserProvider) packageJSONPath() string { return filepath.Join(p.pluginsDir, packageJSONName) }
func (p *UserProvider) yarnrcPath() string      { return filepath.Join(p.pluginsDir, yarnrcName) }
func (p *UserProvider) nodeModulesPath(name string) string {
	return filepath.Join(p.pluginsDir, "node_modules", name)
}

// ensureScaffold creates userPluginsDir/package.json and .yarnrc if either
// is missing (spec section 4.7's install precondition).
func (p *UserProvider) ensureScaffold() error {
	if err := os.MkdirAll(p.pluginsDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", p.pluginsDir)
	}

	if !utils.PathExists(p.packageJSONPath()) {
		pkg := packageJSON{Private: true, Dependencies: map[string]string{}}
		if err := p.writePackageJSON(&pkg); err != nil {
			return err
		}
	}

	if !utils.PathExists(p.yarnrcPath()) {
		rc := "registry \"" + defaultRegistry + "\"\n"
		if err := os.WriteFile(p.yarnrcPath(), []byte(rc), 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", p.yarnrcPath())
		}
	}
	return nil
}

func (p *UserProvider) readPackageJSON() (*packageJSON, error) {
	b, err := os.ReadFile(p.packageJSONPath())
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", p.packageJSONPath())
	}
	var pkg packageJSON
	if err := json.Unmarshal(b, &pkg); err != nil {
		return nil, errors.Wrap(err, "decoding package.json")
	}
	if pkg.Dependencies == nil {
		pkg.Dependencies = map[string]string{}
	}
	return &pkg, nil
}

func (p *UserProvider) writePackageJSON(pkg *packageJSON) error {
	b, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding package.json")
	}
	return errors.Wrapf(os.WriteFile(p.packageJSONPath(), b, 0o644), "writing %s", p.packageJSONPath())
}

func (p *UserProvider) runPackageManager(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "yarn", args...)
	cmd.Dir = p.pluginsDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Install implements spec section 4.7's install operation.
func (p *UserProvider) Install(ctx context.Context, name, tag string) error {
	if tag == "" {
		tag = "latest"
	}

	release, err := p.lock.WriterAcquire()
	if err != nil {
		return errors.Wrap(err, "acquiring plugins writer lock")
	}
	defer release() //nolint:errcheck

	if err := p.ensureScaffold(); err != nil {
		return err
	}

	pkg, err := p.readPackageJSON()
	if err != nil {
		return err
	}
	previous, hadPrevious := pkg.Dependencies[name]
	pkg.Dependencies[name] = tag
	if err := p.writePackageJSON(pkg); err != nil {
		return err
	}

	if err := p.runPackageManager(ctx, "install"); err != nil {
		p.revertDependency(pkg, name, previous, hadPrevious)
		return errors.Wrapf(err, "installing plugin %s", name)
	}

	d, err := readDescriptor(p.nodeModulesPath(name))
	if err != nil {
		p.revertDependency(pkg, name, previous, hadPrevious)
		_ = p.runPackageManager(ctx, "install")
		return err
	}

	return p.cachePlugin(name, d)
}

// revertDependency restores package.json to its pre-install state, best
// effort: a write failure here is ignored, not returned, since the
// original install error is the one the user needs to see.
func (p *UserProvider) revertDependency(pkg *packageJSON, name, previous string, hadPrevious bool) {
	if hadPrevious {
		pkg.Dependencies[name] = previous
	} else {
		delete(pkg.Dependencies, name)
	}
	_ = p.writePackageJSON(pkg)
}

func (p *UserProvider) cachePlugin(name string, d *descriptor) error {
	ids := make([]string, 0, len(d.Commands))
	topicSet := map[string]bool{}
	for _, c := range d.Commands {
		ids = append(ids, c.ID)
		if t := topicOf(c.ID); t != "" {
			topicSet[t] = true
		}
	}
	topics := make([]string, 0, len(topicSet))
	for t := range topicSet {
		topics = append(topics, t)
	}

	return p.manifest.Put(name, catalog.Entry{
		Version:    d.Version,
		Topics:     topics,
		CommandIDs: ids,
		NodePath:   p.nodeModulesPath(name),
	})
}

// Update implements spec section 4.7's update operation: invoke the
// package manager with "upgrade", then refresh every cached entry's
// descriptor-derived metadata since versions may have changed.
func (p *UserProvider) Update(ctx context.Context) error {
	releaseLock, err := p.lock.WriterAcquire()
	if err != nil {
		return errors.Wrap(err, "acquiring plugins writer lock")
	}
	defer releaseLock() //nolint:errcheck

	if err := p.runPackageManager(ctx, "upgrade"); err != nil {
		return errors.Wrap(err, "upgrading plugins")
	}

	m, err := p.manifest.Load()
	if err != nil {
		return err
	}
	for name, entry := range m.Plugins {
		d, err := readDescriptor(p.nodeModulesPath(name))
		if err != nil {
			continue
		}
		if release.IsNewer(d.Version, entry.Version) {
			logx.Infof("upgraded plugin %s: %s -> %s", name, entry.Version, d.Version)
		}
		if err := p.cachePlugin(name, d); err != nil {
			return err
		}
	}
	return nil
}

// Remove implements spec section 4.7's remove operation.
func (p *UserProvider) Remove(ctx context.Context, name string) error {
	release, err := p.lock.WriterAcquire()
	if err != nil {
		return errors.Wrap(err, "acquiring plugins writer lock")
	}
	defer release() //nolint:errcheck

	pkg, err := p.readPackageJSON()
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return &apperrors.InvalidPluginError{Name: name, Reason: "not installed"}
		}
		return err
	}
	if _, ok := pkg.Dependencies[name]; !ok {
		return &apperrors.InvalidPluginError{Name: name, Reason: "not installed"}
	}

	if err := p.runPackageManager(ctx, "remove", name); err != nil {
		return errors.Wrapf(err, "removing plugin %s", name)
	}

	return p.manifest.Invalidate(name)
}
