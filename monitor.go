// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"context"
	"sync"
	"time"
)

// monitorWait is how long a monitor blocks in a single wait on its watcher.
// Stopping the watcher ends the wait early.
const monitorWait = 24 * time.Hour

// startMonitor runs the monitor goroutine of w. The goroutine forwards every
// notification of w to gate and exits once ctx is done or the gate is
// stopped, closing w on its way out. wg tracks the goroutine.
func startMonitor(ctx context.Context, wg *sync.WaitGroup, w watcher, gate *pendingGate, name string) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if err := w.close(); err != nil {
				dbgprintf("monitor %s: close: %v", name, err)
			}
		}()
		for {
			if ctx.Err() != nil {
				dbgprintf("monitor %s: watcher released, exiting", name)
				return
			}
			if w.waitForNotification(monitorWait) {
				if gate.notifyPendingOrStop() {
					return
				}
			} else if gate.isStopRequested() {
				return
			}
		}
	}()
}
