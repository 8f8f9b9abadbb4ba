// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// fsnotifyWatcher is a watcher backed by fsnotify. In recursive mode it
// covers the whole subtree below path on its own, adding directories as they
// appear; otherwise only the directories and files registered with it are
// watched.
type fsnotifyWatcher struct {
	path      string
	recursive bool

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	queue     []PendingEvent
	notified  bool
	cancelled bool

	signal   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	forward  sync.WaitGroup
}

func newFSNotifyWatcher(path string, recursive bool) *fsnotifyWatcher {
	return &fsnotifyWatcher{
		path:      path,
		recursive: recursive,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (w *fsnotifyWatcher) start(root owningRoot) error {
	if w.path == "" {
		w.path = root.rootPath()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		fsw.Close()
		return errWatcherClosed
	default:
	}
	w.fsw = fsw
	w.mu.Unlock()
	if w.recursive {
		if err := w.addTree(fsw, w.path); err != nil {
			return err
		}
	}
	w.forward.Add(1)
	go w.loop(fsw)
	return nil
}

// addTree adds every directory below path, path included. Directories that
// vanish during the walk are skipped.
func (w *fsnotifyWatcher) addTree(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p != path {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (w *fsnotifyWatcher) loop(fsw *fsnotify.Watcher) {
	defer w.forward.Done()
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		case <-w.done:
			return
		}
	}
}

func (w *fsnotifyWatcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	flags := PendingViaNotify
	cancel := false
	switch {
	case ev.Name == w.path && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)):
		cancel = true
	case w.recursive && ev.Has(fsnotify.Create):
		if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
			// Entries may have been created before the watch was added.
			flags |= PendingRecursive
			if err := w.addTree(fsw, ev.Name); err != nil {
				dbgprintf("fsnotify %s: add %s: %v", w.path, ev.Name, err)
			}
		}
	}
	w.queueEvent(PendingEvent{Path: ev.Name, Timestamp: time.Now(), Flags: flags}, cancel)
}

func (w *fsnotifyWatcher) handleError(err error) {
	if !errors.Is(err, fsnotify.ErrEventOverflow) {
		Logger().WithFields(logrus.Fields{"path": w.path}).Warnf("fsnotify error: %v", err)
		return
	}
	w.queueEvent(PendingEvent{
		Path:      w.path,
		Timestamp: time.Now(),
		Flags:     PendingViaNotify | PendingRecursive | PendingDesynced,
	}, false)
}

func (w *fsnotifyWatcher) queueEvent(e PendingEvent, cancel bool) {
	w.mu.Lock()
	w.queue = append(w.queue, e)
	w.cancelled = w.cancelled || cancel
	w.notified = true
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *fsnotifyWatcher) beginWatchingDirectory(_ owningRoot, _ *dir, path string) (dirHandle, error) {
	if !w.recursive {
		w.mu.Lock()
		fsw := w.fsw
		w.mu.Unlock()
		if fsw == nil {
			return nil, errWatcherClosed
		}
		if err := fsw.Add(path); err != nil {
			return nil, err
		}
	}
	return openDir(path)
}

func (w *fsnotifyWatcher) beginWatchingFile(f *file) bool {
	if w.recursive {
		return true
	}
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	return fsw != nil && fsw.Add(f.fullPath()) == nil
}

func (w *fsnotifyWatcher) drainPending(_ owningRoot, sink pendingSink) (added, cancelSelf bool) {
	w.mu.Lock()
	queue := w.queue
	w.queue = nil
	cancelSelf = w.cancelled
	w.mu.Unlock()
	for _, e := range queue {
		sink.add(e.Path, e.Timestamp, e.Flags)
	}
	return len(queue) != 0, cancelSelf
}

func (w *fsnotifyWatcher) waitForNotification(timeout time.Duration) bool {
	if w.takeNotified() {
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.signal:
		return w.takeNotified()
	case <-w.done:
		return false
	case <-t.C:
		return false
	}
}

// takeNotified reports and clears whether events were queued since the last
// successful wait. It is always false once the watcher is stopped.
func (w *fsnotifyWatcher) takeNotified() bool {
	select {
	case <-w.done:
		return false
	default:
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.notified
	w.notified = false
	return n
}

func (w *fsnotifyWatcher) requestStop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.done)
		fsw := w.fsw
		w.mu.Unlock()
		if fsw != nil {
			if err := fsw.Close(); err != nil {
				dbgprintf("fsnotify %s: close: %v", w.path, err)
			}
		}
	})
}

func (w *fsnotifyWatcher) close() error {
	w.requestStop()
	w.forward.Wait()
	return nil
}
