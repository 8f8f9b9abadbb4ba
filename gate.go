// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"sync"
	"time"
)

// pendingGate is the wake-up signal shared by every goroutine of a split
// watcher. Producers only set a flag; the events themselves stay inside the
// leaf watchers until the consumer drains them.
type pendingGate struct {
	mu      sync.Mutex
	stop    bool
	pending bool
	wake    chan struct{} // one slot, wakes a single waiter
	done    chan struct{} // closed by stopAll, wakes every waiter
}

func newPendingGate() *pendingGate {
	return &pendingGate{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// notifyPendingOrStop marks events as pending and wakes one waiter. It
// returns true, without touching anything, when stop was requested; the
// calling goroutine must then terminate.
func (g *pendingGate) notifyPendingOrStop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop {
		return true
	}
	g.pending = true
	select {
	case g.wake <- struct{}{}:
	default:
	}
	return false
}

func (g *pendingGate) isStopRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stop
}

// waitForPending blocks until woken, stopped or the timeout elapses and
// reports whether events are pending. It never blocks after stopAll.
func (g *pendingGate) waitForPending(timeout time.Duration) bool {
	g.mu.Lock()
	if g.stop {
		g.mu.Unlock()
		return false
	}
	if g.pending {
		g.mu.Unlock()
		return true
	}
	g.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-g.wake:
	case <-g.done:
		return false
	case <-t.C:
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending && !g.stop
}

// consumePending clears the pending flag. Only the draining consumer calls it.
func (g *pendingGate) consumePending() {
	g.mu.Lock()
	g.pending = false
	select {
	case <-g.wake:
	default:
	}
	g.mu.Unlock()
}

// stopAll requests every goroutine sharing the gate to stop. It is safe to
// call more than once.
func (g *pendingGate) stopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop {
		return
	}
	g.stop = true
	close(g.done)
}
