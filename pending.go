// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// pendingCollection accumulates drained changes until the root processes
// them. Entries for the same path are consolidated, and a recursive entry
// makes pending entries below it redundant.
type pendingCollection struct {
	mu           sync.Mutex
	items        map[string]*PendingEvent
	order        []string
	cookiePrefix string
}

func newPendingCollection(cookiePrefix string) *pendingCollection {
	return &pendingCollection{
		items:        make(map[string]*PendingEvent),
		cookiePrefix: cookiePrefix,
	}
}

func (c *pendingCollection) isCookie(path string) bool {
	return c.cookiePrefix != "" && strings.HasPrefix(filepath.Base(path), c.cookiePrefix)
}

func (c *pendingCollection) add(path string, now time.Time, flags PendingFlags) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.obsoletedLocked(path) {
		dbgprintf("pending: skip %s, obsoleted by a recursive parent", path)
		return
	}
	if p, ok := c.items[path]; ok {
		p.Flags |= flags
		if now.After(p.Timestamp) {
			p.Timestamp = now
		}
		c.pruneLocked(path, p.Flags)
		return
	}
	c.items[path] = &PendingEvent{Path: path, Timestamp: now, Flags: flags}
	c.order = append(c.order, path)
	c.pruneLocked(path, flags)
}

// obsoletedLocked reports whether a recursive entry for an ancestor of path
// already covers it. Cookie files are never obsoleted.
func (c *pendingCollection) obsoletedLocked(path string) bool {
	if c.isCookie(path) {
		return false
	}
	for p := filepath.Dir(path); ; p = filepath.Dir(p) {
		if e, ok := c.items[p]; ok && e.Flags&PendingRecursive != 0 {
			return true
		}
		if next := filepath.Dir(p); next == p {
			return false
		}
	}
}

func (c *pendingCollection) pruneLocked(path string, flags PendingFlags) {
	if flags&(PendingRecursive|PendingCrawlOnly) != PendingRecursive {
		return
	}
	var pruned int
	for p, e := range c.items {
		if p == path || e.Flags&PendingCrawlOnly != 0 || c.isCookie(p) {
			continue
		}
		if isParentOrSelf(path, p) {
			delete(c.items, p)
			pruned++
		}
	}
	if pruned != 0 {
		dbgprintf("pending: pruned %d entries under %s", pruned, path)
	}
}

// drain empties the collection and returns its entries in arrival order.
func (c *pendingCollection) drain() []PendingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		c.order = c.order[:0]
		return nil
	}
	out := make([]PendingEvent, 0, len(c.items))
	for _, p := range c.order {
		if e, ok := c.items[p]; ok {
			out = append(out, *e)
			delete(c.items, p)
		}
	}
	c.order = c.order[:0]
	return out
}

func (c *pendingCollection) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
