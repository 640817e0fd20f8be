// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crossProcess simulates two distinct OS processes contending for the same
// lock path by disabling the same-process re-entry shortcut; within a
// single test binary that shortcut would otherwise let a second acquire
// from the same process through immediately.
func crossProcess(path string) *Lock {
	return New(path, WithSkipOwnPid(false))
}

func TestWriterExcludesSecondWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")

	release1, err := crossProcess(path).WriterAcquire()
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := crossProcess(path).WriterAcquire()
		require.NoError(t, err)
		close(acquired)
		_ = release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second writer acquired the lock while the first still held it")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, release1())

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second writer never acquired the lock after release")
	}
}

func TestReadersCoexistButExcludeWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")

	releaseR1, err := crossProcess(path).ReaderAcquire()
	require.NoError(t, err)
	releaseR2, err := crossProcess(path).ReaderAcquire()
	require.NoError(t, err)

	writerAcquired := make(chan struct{})
	go func() {
		release, err := crossProcess(path).WriterAcquire()
		require.NoError(t, err)
		close(writerAcquired)
		_ = release()
	}()

	select {
	case <-writerAcquired:
		t.Fatal("writer acquired while readers were still active")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, releaseR1())
	require.NoError(t, releaseR2())

	select {
	case <-writerAcquired:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never acquired after both readers released")
	}
}

func TestSkipOwnPidReentersWithoutBlocking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")
	l := New(path)

	release1, err := l.WriterAcquire()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		release2, err := l.WriterAcquire()
		require.NoError(t, err)
		close(done)
		_ = release2()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("re-entrant writer acquire from the same process blocked")
	}

	require.NoError(t, release1())
}

func TestHasWriterProbe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")

	assert.False(t, crossProcess(path).HasWriter())

	release, err := crossProcess(path).WriterAcquire()
	require.NoError(t, err)
	assert.True(t, crossProcess(path).HasWriter())

	require.NoError(t, release())
	assert.False(t, crossProcess(path).HasWriter())
}
