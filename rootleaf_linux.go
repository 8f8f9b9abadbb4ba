// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux
// +build linux

package notify

// platformWatcher is the name of the native non-recursive watcher.
const platformWatcher = "inotify"

func newRootLeaf() watcher {
	return newInotifyWatcher()
}
