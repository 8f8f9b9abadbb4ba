// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// SplitWatcher is the name of the watcher that combines a root watcher with
// one recursive watcher per top-level directory.
const SplitWatcher = "split"

var (
	// ErrSplitWatcherDisabled is returned when the split watcher is requested
	// but prefer_split_watcher is not set.
	ErrSplitWatcherDisabled = errors.New("not using the split watcher as prefer_split_watcher is not set")
	// ErrUnknownWatcher is returned for a watcher name nobody registered.
	ErrUnknownWatcher = errors.New("unknown watcher")
)

// watcherFactory builds the watcher of a root, or explains why it cannot.
type watcherFactory func(cfg Config) (watcher, error)

type watcherEntry struct {
	name     string
	priority int
	factory  watcherFactory
}

// watcherRegistry selects the watcher of a root among the registered
// factories, highest priority first.
type watcherRegistry struct {
	mu      sync.Mutex
	entries []watcherEntry
}

var defaultWatchers = newWatcherRegistry()

func newWatcherRegistry() *watcherRegistry {
	r := &watcherRegistry{}
	r.register(SplitWatcher, 5, newSplitFromConfig)
	r.register(platformWatcher, 1, func(Config) (watcher, error) {
		return newRootLeaf(), nil
	})
	return r
}

func newSplitFromConfig(cfg Config) (watcher, error) {
	if !cfg.PreferSplitWatcher {
		return nil, ErrSplitWatcherDisabled
	}
	return newSplitWatcher(newRootLeaf(), func(path string) watcher {
		return newFSNotifyWatcher(path, true)
	}), nil
}

func (r *watcherRegistry) register(name string, priority int, f watcherFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, watcherEntry{name: name, priority: priority, factory: f})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].priority > r.entries[j].priority
	})
}

// create returns the watcher named by cfg.Watcher, or, when no name is
// configured, the first registered watcher that can be built.
func (r *watcherRegistry) create(root string, cfg Config) (string, watcher, error) {
	r.mu.Lock()
	entries := append([]watcherEntry(nil), r.entries...)
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if cfg.Watcher != "" && cfg.Watcher != e.name {
			continue
		}
		w, err := e.factory(cfg)
		if err != nil {
			dbgprintf("root %s: watcher %s unavailable: %v", root, e.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			continue
		}
		return e.name, w, nil
	}
	if len(errs) == 0 {
		return "", nil, fmt.Errorf("%w %q", ErrUnknownWatcher, cfg.Watcher)
	}
	return "", nil, fmt.Errorf("no usable watcher for %s: %w", root, errors.Join(errs...))
}
