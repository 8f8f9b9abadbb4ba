// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// BUG(olandr): The split watcher only gives directories directly below the
// root their own watcher. A top-level directory replaced by a symlink is
// watched through the root watcher only.

// BUG(olandr): A top-level watcher that cancels itself is dropped for good;
// its directory is covered again only after the root is watched anew or a
// recrawl of the directory is requested.

// Package notify turns the change notifications of one or more OS mechanisms
// into a single stream of pending events per watched directory tree.
package notify

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Notify keeps track of every watched root of the process.
type Notify struct {
	cfg   Config
	mu    sync.Mutex
	roots map[string]*Root
}

// NewNotify returns a Notify using DefaultConfig.
func NewNotify() *Notify {
	n, _ := NewNotifyWithConfig(DefaultConfig())
	return n
}

// NewNotifyWithConfig returns a Notify watching roots according to cfg.
func NewNotifyWithConfig(cfg Config) (*Notify, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Notify{cfg: cfg, roots: make(map[string]*Root)}, nil
}

// Watch sets up a watch on the directory tree rooted at path and reports
// every change below it on c.
//
// The directory given by the path must exist, otherwise Watch will fail
// with non-nil error. Notify resolves, for its internal purpose, any symlinks
// the provided path may contain, so it may fail if the symlinks form a cycle.
//
// The c almost always is a buffered channel. Watch will not block sending to c
// - the caller must ensure that c has sufficient buffer space to keep up with
// the expected event rate. Events that do not fit are dropped and counted in
// the Stats of the root. A nil c only keeps the watch alive, which is useful
// together with SyncToNow.
//
// Which watcher serves the root is decided by the configuration: with
// prefer_split_watcher set the root directory is watched on its own and every
// directory directly below it gets a recursive watcher of its own.
func (n *Notify) Watch(path string, c chan<- EventInfo) (*Root, error) {
	path, err := cleanpath(path)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.roots[path]; ok {
		return nil, ErrAlreadyWatched
	}
	r, err := newRoot(path, n.cfg, c, n.forget)
	if err != nil {
		return nil, err
	}
	n.roots[path] = r
	return r, nil
}

// WatchChan is like Watch, but creates the event channel of the root with
// the capacity set by event_buffer.
func (n *Notify) WatchChan(path string) (*Root, <-chan EventInfo, error) {
	c := make(chan EventInfo, n.cfg.EventBuffer)
	r, err := n.Watch(path, c)
	if err != nil {
		return nil, nil, err
	}
	return r, c, nil
}

// Config returns the configuration roots are watched with.
func (n *Notify) Config() Config { return n.cfg }

// forget drops a root that cancelled itself.
func (n *Notify) forget(r *Root) {
	n.mu.Lock()
	if n.roots[r.path] == r {
		delete(n.roots, r.path)
	}
	n.mu.Unlock()
	if err := r.Close(); err != nil {
		dbgprintf("root %s: close: %v", r.path, err)
	}
}

// Root returns the watched root at path.
func (n *Notify) Root(path string) (*Root, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWatched, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.roots[p]
	if !ok {
		return nil, ErrNotWatched
	}
	return r, nil
}

// Roots lists the paths of the watched roots.
func (n *Notify) Roots() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	paths := make([]string, 0, len(n.roots))
	for p := range n.roots {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Unwatch stops watching the root at path.
//
// When Unwatch returns, it is guaranteed that the channel of the root will
// receive no more events.
func (n *Notify) Unwatch(path string) error {
	r, err := n.Root(path)
	if err != nil {
		return err
	}
	n.mu.Lock()
	if n.roots[r.path] == r {
		delete(n.roots, r.path)
	}
	n.mu.Unlock()
	return r.Close()
}

// Close stops watching every root.
func (n *Notify) Close() error {
	var errs []error
	for {
		n.mu.Lock()
		var r *Root
		for _, root := range n.roots {
			r = root
			break
		}
		if r != nil {
			delete(n.roots, r.path)
		}
		n.mu.Unlock()
		if r == nil {
			return errors.Join(errs...)
		}
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
}
