// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package lock implements the advisory, file-backed reader/writer locks
// described in spec section 4.2. Readers may coexist; a writer excludes
// every reader and every other writer.
//
// The underlying primitive is github.com/gofrs/flock, which wraps the
// kernel's flock(2)/LockFileEx advisory lock and exposes both shared
// (RLock) and exclusive (Lock) modes -- exactly the two modes this package
// needs and which the teacher's own lockedfile-based catalog lock (a single
// exclusive mode) cannot express. Because the kernel releases a process's
// flock automatically when the process exits or crashes, a "stale" writer
// lock is reclaimable by any later process without extra bookkeeping: spec
// section 4.2's "stale lockfiles ... must be reclaimable" falls out of the
// primitive for free.
package lock

import (
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ReleaseFunc releases a previously acquired lock handle. Calling it more
// than once is a no-op.
type ReleaseFunc func() error

// registry tracks locks this process currently holds, keyed by absolute
// path, so a second acquire of the same path from within the same process
// re-enters instead of deadlocking against itself.
type registryEntry struct {
	fl     *flock.Flock
	writer bool
	refs   int
}

var (
	registryMu sync.Mutex
	registry   = map[string]*registryEntry{}
)

// Lock is an advisory reader/writer lock bound to a single file path.
type Lock struct {
	path       string
	skipOwnPid bool
}

// Option configures a Lock.
type Option func(*Lock)

// WithSkipOwnPid controls whether a second acquire from within this same
// process re-enters rather than blocks. Defaults to true, matching spec
// section 4.2 ("required because a spawned child may inherit lock
// metadata").
func WithSkipOwnPid(skip bool) Option {
	return func(l *Lock) { l.skipOwnPid = skip }
}

// New returns a Lock over path. The file is created on first acquire if it
// does not already exist.
func New(path string, opts ...Option) *Lock {
	l := &Lock{path: path, skipOwnPid: true}
	for _, o := range opts {
		o(l)
	}
	return l
}

// ReaderAcquire blocks until no writer holds the lock, then returns a
// release function. Multiple readers may hold the lock concurrently.
func (l *Lock) ReaderAcquire() (ReleaseFunc, error) {
	return l.acquire(false)
}

// WriterAcquire blocks until no reader or writer holds the lock, then
// returns a release function ("downgrade" in the updater's terminology --
// invoking it simply releases, there is no true downgrade-to-reader step).
func (l *Lock) WriterAcquire() (ReleaseFunc, error) {
	return l.acquire(true)
}

func (l *Lock) acquire(writer bool) (ReleaseFunc, error) {
	if l.skipOwnPid {
		if release, ok := l.reenter(writer); ok {
			return release, nil
		}
	}

	fl := flock.New(l.path)
	var err error
	if writer {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to acquire lock on %q", l.path)
	}

	if l.skipOwnPid {
		registryMu.Lock()
		registry[l.path] = &registryEntry{fl: fl, writer: writer, refs: 1}
		registryMu.Unlock()
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		if l.skipOwnPid {
			registryMu.Lock()
			delete(registry, l.path)
			registryMu.Unlock()
		}
		return fl.Unlock()
	}, nil
}

// reenter returns a release function without blocking if this process
// already holds path, incrementing the hold's reference count. The second
// return value is false if no compatible hold exists and the caller must
// acquire the OS-level lock itself.
func (l *Lock) reenter(writer bool) (ReleaseFunc, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()

	entry, ok := registry[l.path]
	if !ok {
		return nil, false
	}
	// A reader may re-enter an existing reader or writer hold; a writer
	// may only re-enter an existing writer hold (re-entering a reader as
	// a writer would violate exclusivity against other concurrent
	// readers in this same process).
	if writer && !entry.writer {
		return nil, false
	}

	entry.refs++
	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		registryMu.Lock()
		defer registryMu.Unlock()
		entry.refs--
		if entry.refs <= 0 {
			delete(registry, l.path)
			return entry.fl.Unlock()
		}
		return nil
	}, true
}

// HasWriter is a non-blocking probe reporting whether a writer currently
// holds path, i.e. whether an update is already in progress elsewhere.
func (l *Lock) HasWriter() bool {
	fl := flock.New(l.path)
	locked, err := fl.TryRLock()
	if err != nil {
		// Treat an inspection error as "can't tell, assume contended" so
		// callers back off rather than racing ahead.
		return true
	}
	if locked {
		_ = fl.Unlock()
		return false
	}
	return true
}
