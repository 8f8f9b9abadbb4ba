// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Root is a watched directory tree. It owns the watcher of the tree, keeps a
// model of the directories and files in it, and delivers every change to the
// channel it was created with.
type Root struct {
	path    string
	cfg     Config
	name    string
	w       watcher
	cookies *cookieSync
	pending *pendingCollection
	top     *dir
	c       chan<- EventInfo

	onCancel  func(*Root)
	cancelled atomic.Bool
	delivered atomic.Uint64
	dropped   atomic.Uint64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// RootStats reports the delivery counters of a root.
type RootStats struct {
	Delivered uint64
	Dropped   uint64
	Pending   int
}

func newRoot(path string, cfg Config, c chan<- EventInfo, onCancel func(*Root)) (*Root, error) {
	name, w, err := defaultWatchers.create(path, cfg)
	if err != nil {
		return nil, err
	}
	return startRoot(path, cfg, name, w, c, onCancel)
}

// startRoot starts w, crawls the tree and runs the consumer goroutine.
// onCancel, if set, is called once the watcher cancelled itself.
func startRoot(path string, cfg Config, name string, w watcher, c chan<- EventInfo, onCancel func(*Root)) (*Root, error) {
	r := &Root{
		path:     path,
		cfg:      cfg,
		name:     name,
		w:        w,
		cookies:  newCookieSync(cfg.CookiePrefix),
		pending:  newPendingCollection(cfg.CookiePrefix),
		top:      newDir(path, nil),
		c:        c,
		onCancel: onCancel,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.addCookieDir(path)
	if err := w.start(r); err != nil {
		w.requestStop()
		return nil, nonil(fmt.Errorf("start %s watcher for %s: %w", name, path, err), w.close())
	}
	if err := r.crawl(r.top); err != nil {
		w.requestStop()
		return nil, nonil(fmt.Errorf("crawl %s: %w", path, err), w.close())
	}
	Logger().WithFields(logrus.Fields{"root": path, "watcher": name}).Info("Watching root")
	go r.loop()
	return r, nil
}

func (r *Root) rootPath() string            { return r.path }
func (r *Root) addCookieDir(path string)    { r.cookies.addCookieDir(path) }
func (r *Root) removeCookieDir(path string) { r.cookies.removeCookieDir(path) }

// Path returns the canonical path of the root.
func (r *Root) Path() string { return r.path }

// WatcherName returns the name of the watcher serving the root.
func (r *Root) WatcherName() string { return r.name }

// Cancelled reports whether the watcher of the root gave up. A cancelled root
// delivers no more events and has to be watched again.
func (r *Root) Cancelled() bool { return r.cancelled.Load() }

// Stats returns the delivery counters of the root.
func (r *Root) Stats() RootStats {
	return RootStats{
		Delivered: r.delivered.Load(),
		Dropped:   r.dropped.Load(),
		Pending:   r.pending.size(),
	}
}

// SyncToNow blocks until every change made before the call has been
// observed by the watcher of the root, or ctx is done.
func (r *Root) SyncToNow(ctx context.Context) error {
	if r.Cancelled() {
		return fmt.Errorf("sync %s: %w", r.path, errWatcherClosed)
	}
	return r.cookies.syncToNow(ctx)
}

// InjectRecrawl forces a recursive, desynced rescan of path to be reported
// by the watcher of the root. Only the split watcher supports it.
func (r *Root) InjectRecrawl(path string) error {
	inj, ok := r.w.(recrawlInjector)
	if !ok {
		return ErrNotSplitWatcher
	}
	if path == "" {
		return ErrInvalidRecrawlPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.path, path)
	}
	inj.injectRecrawl(path)
	return nil
}

// SubWatchers lists the top-level directories that have their own watcher.
func (r *Root) SubWatchers() ([]string, error) {
	p, ok := r.w.(subWatcherLister)
	if !ok {
		return nil, ErrNotSplitWatcher
	}
	return p.subWatcherPaths(), nil
}

// Close stops watching the root and waits for its goroutines to exit.
func (r *Root) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)
		r.w.requestStop()
		<-r.done
		r.closeErr = r.w.close()
		r.cookies.abortAll()
		Logger().WithFields(logrus.Fields{"root": r.path}).Info("Stopped watching root")
	})
	return r.closeErr
}

func (r *Root) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// loop is the consumer of the root: the only goroutine that registers
// directories with the watcher and drains it.
func (r *Root) loop() {
	defer func() {
		close(r.done)
		if r.Cancelled() && r.onCancel != nil {
			r.onCancel(r)
		}
	}()
	for {
		if !r.w.waitForNotification(r.cfg.NotifyTimeout) {
			if r.stopping() {
				return
			}
			continue
		}
		if r.cfg.Settle > 0 {
			t := time.NewTimer(r.cfg.Settle)
			select {
			case <-t.C:
			case <-r.stop:
				t.Stop()
				return
			}
		}
		_, cancelSelf := r.w.drainPending(r, r.pending)
		r.process()
		if cancelSelf {
			Logger().WithFields(logrus.Fields{"root": r.path}).Warn("Watcher cancelled itself, root needs to be watched again")
			r.cancelled.Store(true)
			r.w.requestStop()
			r.cookies.abortAll()
			return
		}
		if r.stopping() {
			return
		}
	}
}

func (r *Root) process() {
	for _, e := range r.pending.drain() {
		if r.pending.isCookie(e.Path) {
			r.cookies.notifyCookie(e.Path)
			continue
		}
		r.examine(e)
		r.deliver(e)
	}
}

// examine brings the model of the tree in line with the changed path,
// registering new directories and files with the watcher.
func (r *Root) examine(e PendingEvent) {
	rel, err := filepath.Rel(r.path, e.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+sep) {
		return
	}
	fi, err := os.Lstat(e.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if rel == "." {
			return
		}
		if parent := r.top.lookup(filepath.Dir(rel)); parent != nil {
			parent.forget(filepath.Base(rel))
		}
		return
	case err != nil:
		dbgprintf("root %s: lstat %s: %v", r.path, e.Path, err)
		return
	}

	var werr error
	if fi.IsDir() {
		first, d := r.dirFor(rel)
		switch {
		case first != nil:
			werr = r.crawl(first)
		case e.Flags&PendingRecursive != 0:
			werr = r.crawl(d)
		}
	} else {
		first, parent := r.dirFor(filepath.Dir(rel))
		if first != nil {
			werr = r.crawl(first)
		} else if f, created := parent.childFile(filepath.Base(rel)); created {
			r.w.beginWatchingFile(f)
		}
	}
	if werr != nil && !errors.Is(werr, fs.ErrNotExist) {
		Logger().WithFields(logrus.Fields{"root": r.path, "path": e.Path}).Warnf("Failed to watch: %v", werr)
	}
}

// dirFor returns the model of the directory at rel, creating missing nodes.
// first is the topmost node that had to be created, or nil.
func (r *Root) dirFor(rel string) (first, d *dir) {
	d = r.top
	if rel == "." {
		return nil, d
	}
	for _, name := range splitPath(rel) {
		next, ok := d.dirs[name]
		if !ok {
			next = d.childDir(name)
			if first == nil {
				first = next
			}
		}
		d = next
	}
	return first, d
}

// crawl registers d and everything below it with the watcher and refreshes
// the model from the directory contents.
func (r *Root) crawl(d *dir) error {
	path := d.fullPath()
	h, err := r.w.beginWatchingDirectory(r, d, path)
	if err != nil {
		if d.parent != nil {
			d.parent.forget(d.name)
		}
		return err
	}
	defer h.Close()
	entries, err := h.ReadDir(-1)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := e.Name()
		if r.pending.isCookie(name) {
			continue
		}
		seen[name] = struct{}{}
		if e.IsDir() {
			delete(d.files, name)
			if err := r.crawl(d.childDir(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			continue
		}
		delete(d.dirs, name)
		if f, created := d.childFile(name); created {
			r.w.beginWatchingFile(f)
		}
	}
	for name := range d.dirs {
		if _, ok := seen[name]; !ok {
			delete(d.dirs, name)
		}
	}
	for name := range d.files {
		if _, ok := seen[name]; !ok {
			delete(d.files, name)
		}
	}
	return nil
}

func (r *Root) deliver(e PendingEvent) {
	if r.c == nil {
		return
	}
	select {
	case r.c <- &event{pending: e}:
		r.delivered.Add(1)
	default:
		r.dropped.Add(1)
		dbgprintf("root %s: dropped event for %s", r.path, e.Path)
	}
}
