// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// subWatcher is a pool entry: an independently running watcher for one
// top-level directory, and the liveness token of its monitor goroutine.
type subWatcher struct {
	w       watcher
	release context.CancelFunc
}

// splitWatcher watches the root directory and the files directly in it with
// one mechanism and gives every top-level directory its own recursive
// watcher built on a second mechanism. It merges all of them into a single
// stream and is itself a watcher, so it can be used wherever one is.
type splitWatcher struct {
	root    watcher
	newSub  func(path string) watcher
	gate    *pendingGate
	threads sync.WaitGroup

	poolMu sync.RWMutex
	pool   map[string]*subWatcher

	injectMu sync.Mutex
	injected *string

	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func newSplitWatcher(root watcher, newSub func(path string) watcher) *splitWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &splitWatcher{
		root:   root,
		newSub: newSub,
		gate:   newPendingGate(),
		pool:   make(map[string]*subWatcher),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *splitWatcher) start(root owningRoot) error {
	root.addCookieDir(root.rootPath())
	if err := w.root.start(root); err != nil {
		root.removeCookieDir(root.rootPath())
		return fmt.Errorf("start root watcher: %w", err)
	}
	w.started = true
	startMonitor(w.ctx, &w.threads, w.root, w.gate, root.rootPath())
	return nil
}

func (w *splitWatcher) beginWatchingDirectory(root owningRoot, d *dir, path string) (dirHandle, error) {
	switch {
	case d.parent == nil:
		dbgprintf("split: watching root directory %s", path)
		return w.root.beginWatchingDirectory(root, d, path)
	case d.parent.fullPath() == root.rootPath():
		if err := w.ensureSubWatcher(root, d.fullPath()); err != nil {
			return nil, err
		}
	}
	return openDir(path)
}

// ensureSubWatcher creates the watcher of the top-level directory path
// unless the pool already has one.
func (w *splitWatcher) ensureSubWatcher(root owningRoot, path string) error {
	w.poolMu.Lock()
	defer w.poolMu.Unlock()
	if _, ok := w.pool[path]; ok {
		return nil
	}
	if w.gate.isStopRequested() {
		return errWatcherClosed
	}

	dbgprintf("split: creating a watcher for top-level directory %s", path)
	root.addCookieDir(path)
	sub := w.newSub(path)
	if err := sub.start(root); err != nil {
		root.removeCookieDir(path)
		sub.requestStop()
		if cerr := sub.close(); cerr != nil {
			dbgprintf("split: close %s: %v", path, cerr)
		}
		return fmt.Errorf("start watcher for %q: %w", path, err)
	}
	ctx, release := context.WithCancel(w.ctx)
	w.pool[path] = &subWatcher{w: sub, release: release}
	startMonitor(ctx, &w.threads, sub, w.gate, path)
	return nil
}

func (w *splitWatcher) beginWatchingFile(f *file) bool {
	if f.parent.parent == nil {
		return w.root.beginWatchingFile(f)
	}
	// The watcher of the top-level directory covers f already.
	return true
}

func (w *splitWatcher) drainPending(root owningRoot, sink pendingSink) (added, cancelSelf bool) {
	w.gate.consumePending()

	w.injectMu.Lock()
	if w.injected != nil {
		sink.add(*w.injected, time.Now(), PendingViaNotify|PendingRecursive|PendingDesynced)
		w.injected = nil
		added = true
	}
	w.injectMu.Unlock()

	w.poolMu.Lock()
	for path, sub := range w.pool {
		subAdded, subCancel := sub.w.drainPending(root, sink)
		if subCancel {
			Logger().WithFields(logrus.Fields{
				"root": root.rootPath(),
				"path": path,
			}).Warn("Watcher of top-level directory cancelled itself, dropping it")
			sub.release()
			sub.w.requestStop()
			root.removeCookieDir(path)
			delete(w.pool, path)
			continue
		}
		added = added || subAdded
	}
	w.poolMu.Unlock()

	rootAdded, rootCancel := w.root.drainPending(root, sink)
	return added || rootAdded, rootCancel
}

func (w *splitWatcher) waitForNotification(timeout time.Duration) bool {
	return w.gate.waitForPending(timeout)
}

func (w *splitWatcher) requestStop() {
	w.gate.stopAll()
	w.poolMu.RLock()
	for _, sub := range w.pool {
		sub.w.requestStop()
	}
	w.poolMu.RUnlock()
	w.root.requestStop()
}

// close waits for every monitor goroutine to exit. Each of them closes the
// watcher it monitors.
func (w *splitWatcher) close() error {
	w.requestStop()
	w.cancel()
	w.threads.Wait()
	if !w.started {
		return w.root.close()
	}
	return nil
}

// injectRecrawl queues a forced recursive, desynced rescan of path. A path
// injected before the previous one was drained replaces it.
func (w *splitWatcher) injectRecrawl(path string) {
	path = filepath.Clean(path)
	w.injectMu.Lock()
	w.injected = &path
	w.injectMu.Unlock()
	w.gate.notifyPendingOrStop()
}

// subWatcherPaths lists the top-level directories with a running watcher.
func (w *splitWatcher) subWatcherPaths() []string {
	w.poolMu.RLock()
	defer w.poolMu.RUnlock()
	paths := make([]string, 0, len(w.pool))
	for p := range w.pool {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
