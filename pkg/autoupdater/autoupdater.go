// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package autoupdater implements spec section 4.6: deciding when to check
// for updates, touching the attempt marker, and spawning a detached
// `<binPath> update --autoupdate` child that performs the actual update
// out of band of the user's current command.
package autoupdater

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/forgecli/forge/pkg/cliconfig"
	"github.com/forgecli/forge/pkg/logx"
	"github.com/forgecli/forge/pkg/paths"
)

// needsCheckAfter is the debounce window of spec section 4.6: an
// autoupdate attempt older than this makes autoupdateNeeded true.
const needsCheckAfter = 5 * time.Hour

// childDebounceWindow and childDebouncePoll implement the second,
// narrower debounce inside the spawned `update --autoupdate` child itself:
// while the marker is younger than the window, the child waits rather
// than updating immediately, so a burst of shells started at nearly the
// same moment doesn't turn into a burst of simultaneous downloads. Vars
// rather than consts so tests can shrink them.
var (
	childDebounceWindow = time.Hour
	childDebouncePoll   = time.Minute
)

// WarnChecker is the subset of *updater.Updater the autoupdater needs,
// kept as an interface so tests don't have to stand up a full Updater.
type WarnChecker interface {
	WarnIfUpdateAvailable(ctx context.Context) error
	BinPath() string
}

// Autoupdater runs the background update decision described in spec
// section 4.6.
type Autoupdater struct {
	cfg   *cliconfig.Config
	paths *paths.Paths
}

// New builds an Autoupdater bound to cfg.
func New(cfg *cliconfig.Config, p *paths.Paths) *Autoupdater {
	return &Autoupdater{cfg: cfg, paths: p}
}

// Needed implements autoupdateNeeded: true iff the last attempt marker is
// older than needsCheckAfter, treating a missing marker or any other stat
// error as "needed" (spec section 4.6 and the testable properties of
// section 8).
func (a *Autoupdater) Needed() bool {
	info, err := os.Stat(a.paths.AutoupdateFile())
	if err != nil {
		if !os.IsNotExist(err) {
			logx.Warningf("autoupdate: unable to stat marker file: %v", err)
		}
		return true
	}
	return time.Since(info.ModTime()) > needsCheckAfter
}

// Run implements spec section 4.6's Run operation.
func (a *Autoupdater) Run(ctx context.Context, checker WarnChecker, force bool) {
	if err := checker.WarnIfUpdateAvailable(ctx); err != nil {
		// Autoupdate-path errors are demoted to warnings unconditionally
		// (spec section 7): the user's primary command must not fail
		// because a background check did.
		logx.Warningf("unable to check for updates: %v", err)
	}

	if !force && !a.Needed() {
		return
	}

	if err := a.touch(); err != nil {
		logx.Warningf("autoupdate: unable to record attempt: %v", err)
		return
	}

	binPath := checker.BinPath()
	if binPath == "" {
		return
	}

	if err := a.spawn(binPath); err != nil {
		logx.Warningf("autoupdate: unable to spawn updater: %v", err)
	}
}

// WaitOutDebounce implements spec section 4.6's child-side debounce: while
// the marker's mtime plus childDebounceWindow is still in the future,
// sleep in childDebouncePoll increments and recheck. Only the detached
// `update --autoupdate` child calls this, never Run itself.
func (a *Autoupdater) WaitOutDebounce(ctx context.Context) error {
	for {
		info, err := os.Stat(a.paths.AutoupdateFile())
		if err != nil {
			return nil
		}
		remaining := time.Until(info.ModTime().Add(childDebounceWindow))
		if remaining <= 0 {
			return nil
		}
		wait := childDebouncePoll
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// touch records an autoupdate attempt by creating or updating the mtime of
// the marker file. It runs BEFORE spawning (spec section 4.6 step 3 / 5
// ordering guarantee), so a sibling invocation racing in sees the fresh
// mtime and skips rather than piling on.
func (a *Autoupdater) touch() error {
	path := a.paths.AutoupdateFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating cache dir")
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "touching %s", path)
	}
	return f.Close()
}

// spawn launches `<binPath> update --autoupdate` detached from this
// process, matching spec section 4.6 step 6: its stdio is redirected to
// the autoupdate log, it runs in its own process group, and the parent
// does not wait on it.
func (a *Autoupdater) spawn(binPath string) error {
	logFile, err := os.OpenFile(a.paths.AutoupdateLogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", a.paths.AutoupdateLogFile())
	}
	defer logFile.Close()

	if _, err := fmt.Fprintf(logFile, "--- autoupdate attempt at %s ---\n", time.Now().Format(time.RFC3339)); err != nil {
		return errors.Wrap(err, "writing autoupdate log preamble")
	}

	cmd := buildSpawnCommand(a.cfg, binPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s_TIMESTAMPS=1", a.cfg.EnvPrefix()),
		fmt.Sprintf("%s_SKIP_ANALYTICS=1", a.cfg.EnvPrefix()),
	)

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "starting autoupdate process")
	}
	// Reap the child asynchronously instead of blocking the caller on it;
	// the parent CLI invocation is free to exit immediately after.
	go func() { _ = cmd.Wait() }()
	return nil
}

// buildSpawnCommand constructs the detached child command. POSIX children
// run in their own process group (so a signal to the parent's group does
// not also kill the updater); Windows has no process-group concept here
// and instead launches through cmd.exe per spec section 4.6.
func buildSpawnCommand(cfg *cliconfig.Config, binPath string) *exec.Cmd {
	if cfg.Windows {
		comspec := os.Getenv("COMSPEC")
		if comspec == "" {
			comspec = "cmd.exe"
		}
		return exec.Command(comspec, "/c", binPath, "update", "--autoupdate")
	}

	cmd := exec.Command(binPath, "update", "--autoupdate")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}
