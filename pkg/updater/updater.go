// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package updater implements spec section 4.5: orchestrating a self-update
// (version decision, download, atomic swap, retention, bin symlink).
package updater

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"

	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/extractor"
	"github.com/forgecli/forge/pkg/lock"
	"github.com/forgecli/forge/pkg/logx"
	"github.com/forgecli/forge/pkg/paths"
	"github.com/forgecli/forge/pkg/release"
)

// retentionWindow is how long a non-current release tree is kept before
// Tidy removes it (spec section 4.5.3).
const retentionWindow = 24 * time.Hour

// progressRefreshInterval throttles the download progress bar to at most
// 2 updates per second (spec section 4.5.1 step 4).
const progressRefreshInterval = 500 * time.Millisecond

// Rand is the source of randomness shouldUpdate samples for priority-based
// autoupdate skipping. New uses the math/rand global unless WithRand
// supplies another source (tests inject a fixed-value Rand).
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Updater orchestrates the update flow described in spec section 4.5.
type Updater struct {
	cfg    *cliconfig.Config
	paths  *paths.Paths
	client *release.Client
	lock   *lock.Lock
	rand   Rand

	binPathOnce   sync.Once
	binPathCached string
}

// Option configures an Updater.
type Option func(*Updater)

// WithRand overrides the random source used by shouldUpdate.
func WithRand(r Rand) Option {
	return func(u *Updater) { u.rand = r }
}

// New builds an Updater bound to cfg.
func New(cfg *cliconfig.Config, p *paths.Paths, client *release.Client, opts ...Option) *Updater {
	u := &Updater{
		cfg:    cfg,
		paths:  p,
		client: client,
		lock:   lock.New(p.UpdateLockFile()),
		rand:   globalRand{},
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Update runs the full flow of spec section 4.5.1: fetch the manifest for
// channel, decide whether to proceed, and if so download, extract, swap
// and repoint ClientBin. manual distinguishes an explicit `forge update`
// invocation (always proceeds) from an autoupdate cycle (subject to
// manifest.Priority skipping).
func (u *Updater) Update(ctx context.Context, channel string, manual bool) error {
	manifest, err := u.client.FetchManifest(ctx, channel)
	if err != nil {
		return err
	}

	if isNoop(manifest, channel, u.cfg.Version, u.cfg.Channel) {
		logx.Infof("already on latest version: %s", u.cfg.Version)
		return nil
	}

	if !u.shouldUpdate(manifest, manual) {
		logx.Infof("skipping update to %s this cycle (priority rollout)", manifest.Version)
		return nil
	}

	downgrade, err := u.lock.WriterAcquire()
	if err != nil {
		return errors.Wrap(err, "acquiring update writer lock")
	}
	defer downgrade() //nolint:errcheck

	if err := u.swap(ctx, channel, manifest); err != nil {
		return err
	}

	if err := u.Tidy(); err != nil {
		logx.Warningf("tidy after update failed: %v", err)
	}
	if err := u.chopErrlog(); err != nil {
		logx.Warningf("errlog rotation failed: %v", err)
	}

	return nil
}

// swap performs steps 2-6 of spec section 4.5.1 under the writer lock
// already held by the caller.
func (u *Updater) swap(ctx context.Context, channel string, manifest *release.Manifest) error {
	base := fmt.Sprintf("%s-v%s-%s-%s", u.cfg.Name, manifest.Version, u.cfg.Platform, u.cfg.Arch)

	if err := os.MkdirAll(u.paths.ClientRoot(), 0o755); err != nil {
		return errors.Wrap(err, "ensuring client root exists")
	}

	baseDir := u.paths.ClientVersionRoot(base)
	// A stale partial extraction from an earlier, interrupted attempt
	// cannot be trusted (spec section 9's open question): rather than
	// resuming it, remove it and re-verify the freshly streamed bytes
	// against the manifest's SHA-256 from scratch. Because the manifest
	// version-equality check above already short-circuited a true no-op,
	// this removal can only ever precede a real, needed extraction -- it
	// cannot by itself cause a reinstall loop.
	if err := os.RemoveAll(baseDir); err != nil {
		return errors.Wrapf(err, "removing stale partial tree %s", baseDir)
	}

	stream, contentLength, err := u.client.StreamBuild(ctx, channel, base)
	if err != nil {
		return err
	}
	defer stream.Close()

	reader := u.withProgress(stream, contentLength)

	if err := extractor.Extract(reader, baseDir, manifest.SHA256Gz); err != nil {
		return err
	}

	versionDir := u.paths.ClientVersionRoot(manifest.Version)
	if err := os.RemoveAll(versionDir); err != nil {
		return errors.Wrapf(err, "clearing destination for %s", versionDir)
	}
	if err := os.Rename(baseDir, versionDir); err != nil {
		return errors.Wrapf(err, "renaming %s to %s", baseDir, versionDir)
	}

	if err := u.relinkClientBin(manifest.Version); err != nil {
		return err
	}

	return nil
}

// withProgress wraps stream with a throttled progress bar, drawn on
// stderr, when logx's output is a terminal (logx.IsInteractive);
// otherwise it returns stream unchanged.
func (u *Updater) withProgress(stream io.Reader, contentLength int64) io.Reader {
	if !logx.IsInteractive() {
		return stream
	}
	bar := progressbar.NewOptions64(contentLength,
		progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", u.cfg.Name)),
		progressbar.OptionThrottle(progressRefreshInterval),
		progressbar.OptionSetWriter(os.Stderr),
	)
	return io.TeeReader(stream, bar)
}

// relinkClientBin (re)creates the ClientBin handoff point to point at
// version's release tree (spec section 4.5.1 step 6). On POSIX this is a
// symlink; on Windows, per section 9's design note, a .cmd shim that
// invokes the version's binary is written instead, since symlinks require
// elevated privileges on legacy Windows.
func (u *Updater) relinkClientBin(version string) error {
	binDir := filepath.Dir(u.paths.ClientBin())
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return errors.Wrap(err, "creating client bin directory")
	}

	target := u.paths.ClientVersionBin(version)
	link := u.paths.ClientBin()
	_ = os.Remove(link)

	if u.cfg.Windows {
		shim := fmt.Sprintf("@echo off\r\n\"%s\" %%*\r\n", target)
		if err := os.WriteFile(link, []byte(shim), 0o755); err != nil {
			return errors.Wrap(err, "writing windows bin shim")
		}
		return nil
	}

	if err := os.Symlink(target, link); err != nil {
		// Fall back to a plain copy if symlinking isn't permitted in this
		// environment (e.g. restricted containers), using otiai10/copy.
		if copyErr := copy.Copy(target, link); copyErr != nil {
			return errors.Wrapf(err, "symlinking %s to %s (copy fallback also failed: %v)", link, target, copyErr)
		}
	}
	return nil
}

// isNoop implements the version decision of spec section 4.5.2's first
// branch: identical version and channel.
func isNoop(manifest *release.Manifest, targetChannel, currentVersion, currentChannel string) bool {
	return manifest.Version == currentVersion && targetChannel == currentChannel
}

// shouldUpdate implements the remainder of spec section 4.5.2. Manual
// updates always proceed. Autoupdate cycles sample a uniform draw in
// [0,100) and skip this cycle if it falls under the manifest's priority.
func (u *Updater) shouldUpdate(manifest *release.Manifest, manual bool) bool {
	if manual {
		return true
	}
	if manifest.Priority <= 0 {
		return true
	}
	r := u.rand.Float64() * 100
	return r >= float64(manifest.Priority)
}

// WarnIfUpdateAvailable implements spec section 4.5.4: fetch the (cache-
// allowed) remote version and warn if its minor is strictly newer than the
// running binary's, on the same major. Any message attached to the remote
// Version is emitted verbatim as well.
func (u *Updater) WarnIfUpdateAvailable(ctx context.Context) error {
	if u.cfg.HideUpdateMessage {
		return nil
	}

	v, err := u.client.FetchVersion(ctx, u.cfg.Channel, false)
	if err != nil {
		return err
	}

	if release.MinorVersionGreater(u.cfg.Version, v.Version) {
		logx.Warningf("a newer version of %s is available: %s (you have %s)", u.cfg.Name, v.Version, u.cfg.Version)
	}
	if v.Message != "" {
		logx.Warning(v.Message)
	}
	return nil
}

// BinPath implements spec section 4.5.5: resolve which binary should
// actually run the next leaf command. The result is cached for the
// lifetime of the process.
func (u *Updater) BinPath() string {
	u.binPathOnce.Do(func() {
		if !u.cfg.UpdateDisabled {
			if _, err := os.Lstat(u.paths.ClientBin()); err == nil {
				u.binPathCached = u.paths.ClientBin()
				return
			}
		}
		if envBin := os.Getenv("CLI_BINPATH"); envBin != "" {
			u.binPathCached = envBin
			return
		}
		u.binPathCached = u.cfg.Bin
	})
	return u.binPathCached
}

// chopErrlog rotates the error log to at most 1000 lines, invoked at the
// end of a successful update (spec section 5).
func (u *Updater) chopErrlog() error {
	return chopLines(u.paths.ErrLogFile(), 1000)
}
