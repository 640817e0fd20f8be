// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package updater

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/forgecli/forge/pkg/logx"
)

// reservedClientRootEntries are never considered for removal by Tidy,
// regardless of mtime.
var reservedClientRootEntries = map[string]bool{
	"bin": true,
}

// Tidy implements spec section 4.5.3: walk ClientRoot and remove any
// release tree older than retentionWindow, other than the current version
// and the bin symlink/shim directory. Tidy takes the update writer lock
// so it never races a concurrent swap or a reader executing out of the
// tree it is about to delete; when Update calls it, Update already holds
// that lock and Tidy's acquire re-enters the same hold.
func (u *Updater) Tidy() error {
	downgrade, err := u.lock.WriterAcquire()
	if err != nil {
		return errors.Wrap(err, "acquiring tidy writer lock")
	}
	defer downgrade() //nolint:errcheck

	entries, err := os.ReadDir(u.paths.ClientRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "reading client root")
	}

	now := time.Now()
	for _, entry := range entries {
		name := entry.Name()
		if reservedClientRootEntries[name] || name == u.cfg.Version {
			continue
		}

		path := filepath.Join(u.paths.ClientRoot(), name)
		mtime, err := newestMtime(path)
		if err != nil {
			logx.Warningf("tidy: skipping %s: %v", path, err)
			continue
		}

		if now.Sub(mtime) > retentionWindow {
			if err := os.RemoveAll(path); err != nil {
				logx.Warningf("tidy: failed to remove %s: %v", path, err)
			}
		}
	}
	return nil
}

// newestMtime returns path's own mtime if it is a file, or the newest
// mtime among its direct and transitive contents if it is a directory.
func newestMtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if !info.IsDir() {
		return info.ModTime(), nil
	}

	newest := info.ModTime()
	err = filepath.Walk(path, func(_ string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	return newest, err
}

// chopLines truncates path to at most its last maxLines lines, used for
// the errlog rotation of spec section 5. Errors are returned, not logged,
// so the caller decides how loudly to report a failed rotation.
func chopLines(path string, maxLines int) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "opening %s", path)
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	closeErr := f.Close()
	if scanErr := scanner.Err(); scanErr != nil {
		return errors.Wrapf(scanErr, "reading %s", path)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "closing %s", path)
	}

	if len(lines) <= maxLines {
		return nil
	}
	lines = lines[len(lines)-maxLines:]

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating %s", tmp)
	}
	w := bufio.NewWriter(out)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			out.Close()
			return errors.Wrapf(err, "writing %s", tmp)
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return errors.Wrapf(err, "flushing %s", tmp)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp)
	}
	return os.Rename(tmp, path)
}
