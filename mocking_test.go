// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

// FakeWatcherCalls is a watcher that records every call made to it and
// reports only the changes a test feeds it.
type FakeWatcherCalls struct {
	Path     string
	StartErr error

	mu       sync.Mutex
	calls    []Call
	queue    []PendingEvent
	cancel   bool
	notify   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newFakeWatcher(path string) *FakeWatcherCalls {
	return &FakeWatcherCalls{
		Path:   path,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *FakeWatcherCalls) record(c Call) {
	dbgprintf("%s: (*FakeWatcherCalls).%s(%q)", caller(), c.F, c.P)
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (s *FakeWatcherCalls) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many times f was called.
func (s *FakeWatcherCalls) Count(f FuncType) (n int) {
	for _, c := range s.Calls() {
		if c.F == f {
			n++
		}
	}
	return n
}

// Emit queues a change and wakes a waiter.
func (s *FakeWatcherCalls) Emit(path string, flags PendingFlags) {
	s.mu.Lock()
	s.queue = append(s.queue, PendingEvent{Path: path, Timestamp: time.Now(), Flags: flags})
	s.mu.Unlock()
	s.wake()
}

// CancelSelf makes the next drain report that the watcher gave up.
func (s *FakeWatcherCalls) CancelSelf() {
	s.mu.Lock()
	s.cancel = true
	s.mu.Unlock()
	s.wake()
}

func (s *FakeWatcherCalls) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *FakeWatcherCalls) start(root owningRoot) error {
	s.record(Call{F: FuncStart, P: root.rootPath()})
	return s.StartErr
}

func (s *FakeWatcherCalls) beginWatchingDirectory(_ owningRoot, _ *dir, path string) (dirHandle, error) {
	s.record(Call{F: FuncBeginWatchingDirectory, P: path})
	return openDir(path)
}

func (s *FakeWatcherCalls) beginWatchingFile(f *file) bool {
	s.record(Call{F: FuncBeginWatchingFile, P: f.fullPath()})
	return true
}

func (s *FakeWatcherCalls) drainPending(_ owningRoot, sink pendingSink) (added, cancelSelf bool) {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	cancelSelf = s.cancel
	s.mu.Unlock()
	s.record(Call{F: FuncDrainPending, P: s.Path})
	for _, e := range queue {
		sink.add(e.Path, e.Timestamp, e.Flags)
	}
	return len(queue) != 0, cancelSelf
}

func (s *FakeWatcherCalls) waitForNotification(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case <-s.notify:
		return true
	case <-s.done:
		return false
	case <-t.C:
		return false
	}
}

func (s *FakeWatcherCalls) requestStop() {
	s.record(Call{F: FuncRequestStop, P: s.Path})
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *FakeWatcherCalls) close() error {
	s.record(Call{F: FuncClose, P: s.Path})
	return nil
}

// MockRoot is the owning root of watchers under test. It keeps the cookie
// directories and the drained changes.
type MockRoot struct {
	t    *testing.T
	path string

	mu      sync.Mutex
	added   map[string]int
	removed map[string]int
	dirs    map[string]struct{}
	pending []PendingEvent
}

func newMockRoot(t *testing.T, path string) *MockRoot {
	return &MockRoot{
		t:       t,
		path:    path,
		added:   make(map[string]int),
		removed: make(map[string]int),
		dirs:    make(map[string]struct{}),
	}
}

func (r *MockRoot) rootPath() string { return r.path }

func (r *MockRoot) addCookieDir(path string) {
	r.mu.Lock()
	r.added[path]++
	r.dirs[path] = struct{}{}
	r.mu.Unlock()
}

func (r *MockRoot) removeCookieDir(path string) {
	r.mu.Lock()
	r.removed[path]++
	delete(r.dirs, path)
	r.mu.Unlock()
}

func (r *MockRoot) add(path string, now time.Time, flags PendingFlags) {
	r.mu.Lock()
	r.pending = append(r.pending, PendingEvent{Path: path, Timestamp: now, Flags: flags})
	r.mu.Unlock()
}

// CookieDirs returns the current cookie directories, sorted.
func (r *MockRoot) CookieDirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	dirs := make([]string, 0, len(r.dirs))
	for d := range r.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Removed returns how many times path was removed as a cookie directory.
func (r *MockRoot) Removed(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removed[path]
}

// Take returns and forgets the changes drained so far.
func (r *MockRoot) Take() []PendingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending
	r.pending = nil
	return p
}

// Node returns the model of the directory at rel, building it on the way.
func (r *MockRoot) Node(top *dir, rel string) *dir {
	d := top
	if rel == "" || rel == "." {
		return d
	}
	for _, name := range splitPath(rel) {
		d = d.childDir(name)
	}
	return d
}

// MockWatcher drives a watcher under test the way a root does.
type MockWatcher struct {
	Watcher watcher
	Root    *MockRoot
	Timeout time.Duration

	t   *testing.T
	top *dir
}

func newMockWatcher(t *testing.T, w watcher, root string) *MockWatcher {
	return &MockWatcher{
		Watcher: w,
		Root:    newMockRoot(t, root),
		t:       t,
		top:     newDir(root, nil),
	}
}

func (w *MockWatcher) Start() {
	if err := w.Watcher.start(w.Root); err != nil {
		w.Fatalf("start(%q)=%v", w.Root.path, err)
	}
}

// WatchDir registers the directory at rel and closes the returned handle.
func (w *MockWatcher) WatchDir(rel string) error {
	d := w.Root.Node(w.top, rel)
	h, err := w.Watcher.beginWatchingDirectory(w.Root, d, d.fullPath())
	if err != nil {
		return err
	}
	return h.Close()
}

// WatchFile registers the file at rel.
func (w *MockWatcher) WatchFile(rel string) bool {
	parent := w.Root.Node(w.top, filepath.Dir(rel))
	f, _ := parent.childFile(filepath.Base(rel))
	return w.Watcher.beginWatchingFile(f)
}

// Drain waits for a notification and drains the watcher into the root.
func (w *MockWatcher) Drain() (added, cancelSelf bool) {
	if !w.Watcher.waitForNotification(w.timeout()) {
		w.Fatalf("timed out after %v waiting for a notification", w.timeout())
	}
	return w.Watcher.drainPending(w.Root, w.Root)
}

// ExpectPath drains the watcher until a change of the path at rel carrying
// flags shows up.
func (w *MockWatcher) ExpectPath(rel string, flags PendingFlags) PendingEvent {
	want := filepath.Join(w.Root.path, filepath.FromSlash(rel))
	deadline := time.Now().Add(w.timeout())
	var seen []PendingEvent
	for time.Now().Before(deadline) {
		if w.Watcher.waitForNotification(50 * time.Millisecond) {
			w.Watcher.drainPending(w.Root, w.Root)
		}
		for _, p := range w.Root.Take() {
			if p.Path == want && p.Flags&flags == flags {
				return p
			}
			seen = append(seen, p)
		}
	}
	w.Fatalf("no change of %s with flags %v; got %v", want, flags, seen)
	return PendingEvent{}
}

// Close stops the watcher and releases it.
func (w *MockWatcher) Close() {
	w.Watcher.requestStop()
	if err := w.Watcher.close(); err != nil {
		w.Fatalf("close()=%v", err)
	}
}

func (w *MockWatcher) path(rel string) string {
	return filepath.Join(w.Root.path, filepath.FromSlash(rel))
}

func (w *MockWatcher) mkdir(rel string) {
	if err := os.MkdirAll(w.path(rel), 0755); err != nil {
		w.Fatal(err)
	}
}

func (w *MockWatcher) timeout() time.Duration {
	if w.Timeout != 0 {
		return w.Timeout
	}
	return timeout()
}

func (w *MockWatcher) Fatal(v interface{}) {
	w.t.Fatalf("%s: %v", caller(), v)
}

func (w *MockWatcher) Fatalf(format string, v ...interface{}) {
	w.t.Helper()
	w.t.Fatalf("%s: "+format, append([]interface{}{caller()}, v...)...)
}
