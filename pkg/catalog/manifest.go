// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements the on-disk PluginManifest cache of spec
// section 3: a YAML document mapping plugin name to the metadata needed to
// dispatch into it without loading its code. It is guarded by the same
// lockedfile.File pattern the teacher's pkg/catalog uses for its own
// plugin catalog cache.
package catalog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/yaml.v3"
)

// Entry is one plugin's cached metadata, keyed by plugin name in Manifest.
type Entry struct {
	Version    string   `yaml:"version"`
	Topics     []string `yaml:"topics,omitempty"`
	CommandIDs []string `yaml:"commandIDs,omitempty"`
	NodePath   string   `yaml:"nodePath"`
}

// Manifest is the decoded form of the on-disk PluginManifest cache.
type Manifest struct {
	Plugins map[string]Entry `yaml:"plugins"`
}

// Store reads and writes a Manifest at a fixed path under a writer lock,
// mirroring the teacher's getCatalogCache/saveCatalogCache pairing but
// simplified to this core's single-document, no-context shape.
type Store struct {
	path string
}

// NewStore binds a Store to path (typically paths.Paths.UserPluginsManifest()).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the manifest, returning an empty Manifest if the file does
// not yet exist.
func (s *Store) Load() (*Manifest, error) {
	b, err := lockedfile.Read(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Plugins: map[string]Entry{}}, nil
		}
		return nil, errors.Wrapf(err, "reading plugin manifest %s", s.path)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decoding plugin manifest")
	}
	if m.Plugins == nil {
		m.Plugins = map[string]Entry{}
	}
	return &m, nil
}

// Mutate loads the manifest under a writer lock, applies fn, and saves the
// result, all while the lock is held, so a concurrent install/remove
// cannot interleave with this read-modify-write.
func (s *Store) Mutate(fn func(*Manifest) error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(s.path))
	}

	lf, err := lockedfile.Edit(s.path)
	if err != nil {
		return errors.Wrapf(err, "locking plugin manifest %s", s.path)
	}
	defer lf.Close() //nolint:errcheck

	b, err := io.ReadAll(lf)
	if err != nil {
		return errors.Wrap(err, "reading locked plugin manifest")
	}

	var m Manifest
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &m); err != nil {
			return errors.Wrap(err, "decoding plugin manifest")
		}
	}
	if m.Plugins == nil {
		m.Plugins = map[string]Entry{}
	}

	if err := fn(&m); err != nil {
		return err
	}

	out, err := yaml.Marshal(&m)
	if err != nil {
		return errors.Wrap(err, "encoding plugin manifest")
	}
	if err := lf.Truncate(0); err != nil {
		return errors.Wrap(err, "truncating plugin manifest")
	}
	if _, err := lf.Seek(0, 0); err != nil {
		return errors.Wrap(err, "seeking plugin manifest")
	}
	if _, err := lf.Write(out); err != nil {
		return errors.Wrap(err, "writing plugin manifest")
	}
	return nil
}

// Invalidate drops name's cached entry, forcing the next init to re-derive
// its metadata (spec section 4.7: "a successful mutation invalidates the
// plugin manifest cache entry for the affected plugin").
func (s *Store) Invalidate(name string) error {
	return s.Mutate(func(m *Manifest) error {
		delete(m.Plugins, name)
		return nil
	})
}

// Put records or replaces name's cached entry.
func (s *Store) Put(name string, entry Entry) error {
	return s.Mutate(func(m *Manifest) error {
		m.Plugins[name] = entry
		return nil
	})
}
