// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

var (
	// ErrAlreadyWatched is returned by Notify.Watch for a root watched before.
	ErrAlreadyWatched = errors.New("path is already watched")
	// ErrNotWatched is returned for a path that is not a watched root.
	ErrNotWatched = errors.New("path is not being watched")

	errWatcherClosed = errors.New("watcher is closed")
	errNotDirectory  = errors.New("path is not a directory")
)

// Watcher is the intermediate interface implemented by every notification
// mechanism: inotify for a root, fsnotify for a subtree, and the split
// watcher that composes the two.
//
// Only a single consumer goroutine calls beginWatchingDirectory,
// beginWatchingFile and drainPending. waitForNotification may be called from
// any goroutine, and requestStop is safe to call at any time, any number of
// times.
type watcher interface {
	// start performs the one-time setup of the watcher. A failure aborts the
	// watch being set up and is not retried.
	start(root owningRoot) error

	// beginWatchingDirectory registers d, located at path, for monitoring
	// and returns an open handle for enumerating it. The handle is returned
	// even when the mechanism did not need a new watch for the directory.
	beginWatchingDirectory(root owningRoot, d *dir, path string) (dirHandle, error)

	// beginWatchingFile registers a single file. It reports whether the file
	// is being monitored, which includes mechanisms covering it implicitly.
	beginWatchingFile(f *file) bool

	// drainPending moves the changes detected so far into sink. added reports
	// whether anything was added; cancelSelf reports that the watcher can no
	// longer function and has to be torn down by its owner.
	drainPending(root owningRoot, sink pendingSink) (added, cancelSelf bool)

	// waitForNotification blocks until a notification is available or the
	// timeout elapses. A true result means drainPending should be called.
	waitForNotification(timeout time.Duration) bool

	// requestStop asks the watcher and all goroutines it owns to terminate.
	// It does not wait for them.
	requestStop()

	// close releases the resources of the watcher. It must be called once no
	// goroutine is blocked in waitForNotification.
	close() error
}

// owningRoot is what a watcher needs from the root it serves.
type owningRoot interface {
	rootPath() string
	addCookieDir(path string)
	removeCookieDir(path string)
}

// pendingSink receives drained changes.
type pendingSink interface {
	add(path string, now time.Time, flags PendingFlags)
}

// dirHandle is an open directory ready for enumeration.
type dirHandle interface {
	ReadDir(n int) ([]fs.DirEntry, error)
	Close() error
}

func openDir(path string) (dirHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
