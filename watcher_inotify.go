// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux
// +build linux

package notify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// eventBufferSize defines the size of the buffer given to read(2) function. One
// should not depend on this value, since it was arbitrary chosen and may be
// changed in the future.
const eventBufferSize = 64 * (unix.SizeofInotifyEvent + unix.PathMax + 1)

// inotifyWatcher watches every registered directory non-recursively with a
// single inotify instance. Files are covered by the watch of their parent
// directory.
type inotifyWatcher struct {
	mu      sync.Mutex
	fd      int // inotify instance
	efd     int // eventfd written by requestStop to interrupt poll(2)
	root    string
	paths   map[int32]string
	wds     map[string]int32
	records []inotifyRecord
	cancel  bool
	closed  bool
	buffer  [eventBufferSize]byte

	stopped atomic.Bool
}

func newInotifyWatcher() *inotifyWatcher {
	return &inotifyWatcher{
		fd:    -1,
		efd:   -1,
		paths: make(map[int32]string),
		wds:   make(map[string]int32),
	}
}

func (i *inotifyWatcher) start(root owningRoot) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return errWatcherClosed
	}
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return fmt.Errorf("inotify_init1: %w", err)
	}
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("eventfd: %w", err)
	}
	i.fd, i.efd, i.root = fd, efd, root.rootPath()
	return nil
}

func (i *inotifyWatcher) beginWatchingDirectory(_ owningRoot, _ *dir, path string) (dirHandle, error) {
	i.mu.Lock()
	if i.closed || i.fd == -1 {
		i.mu.Unlock()
		return nil, errWatcherClosed
	}
	wd, err := unix.InotifyAddWatch(i.fd, path, inotifyMask|unix.IN_ONLYDIR)
	if err != nil {
		i.mu.Unlock()
		return nil, &os.PathError{Op: "inotify_add_watch", Path: path, Err: err}
	}
	if old, ok := i.wds[path]; ok && old != int32(wd) {
		delete(i.paths, old)
	}
	i.paths[int32(wd)] = path
	i.wds[path] = int32(wd)
	i.mu.Unlock()
	return openDir(path)
}

// beginWatchingFile reports true: the watch of the parent directory reports
// changes of the file.
func (i *inotifyWatcher) beginWatchingFile(*file) bool {
	return true
}

func (i *inotifyWatcher) waitForNotification(timeout time.Duration) bool {
	if i.stopped.Load() {
		return false
	}
	i.mu.Lock()
	fd, efd := i.fd, i.efd
	i.mu.Unlock()
	if fd == -1 {
		return false
	}

	fds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(efd), Events: unix.POLLIN},
	}
	ms := timeout / time.Millisecond
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	n, err := unix.Poll(fds, int(ms))
	if err != nil && !errors.Is(err, unix.EINTR) {
		dbgprintf("inotify %s: poll: %v", i.root, err)
		return false
	}
	if n <= 0 || i.stopped.Load() || fds[0].Revents&unix.POLLIN == 0 {
		return false
	}
	return i.read()
}

// read moves everything readable from the inotify instance into the record
// buffer, so the descriptor stops polling readable until new events arrive.
func (i *inotifyWatcher) read() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return false
	}
	for {
		n, err := unix.Read(i.fd, i.buffer[:])
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
				dbgprintf("inotify %s: read: %v", i.root, err)
			}
			break
		}
		if n < unix.SizeofInotifyEvent {
			break
		}
		i.records = append(i.records, decodeInotify(i.buffer[:n])...)
	}
	return len(i.records) != 0
}

func decodeInotify(buf []byte) []inotifyRecord {
	var records []inotifyRecord
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		r := inotifyRecord{
			wd:   int32(binary.NativeEndian.Uint32(buf[off:])),
			mask: binary.NativeEndian.Uint32(buf[off+4:]),
		}
		nameLen := int(binary.NativeEndian.Uint32(buf[off+12:]))
		off += unix.SizeofInotifyEvent
		if nameLen > 0 && off+nameLen <= len(buf) {
			name := buf[off : off+nameLen]
			for j, b := range name {
				if b == 0 {
					name = name[:j]
					break
				}
			}
			r.name = string(name)
		}
		off += nameLen
		records = append(records, r)
	}
	return records
}

func (i *inotifyWatcher) drainPending(_ owningRoot, sink pendingSink) (added, cancelSelf bool) {
	i.mu.Lock()
	records := i.records
	i.records = nil
	now := time.Now()
	for _, r := range records {
		if r.mask&unix.IN_Q_OVERFLOW != 0 {
			dbgprintf("inotify %s: queue overflow", i.root)
			sink.add(i.root, now, PendingViaNotify|PendingRecursive|PendingDesynced)
			added = true
			continue
		}
		path, ok := i.paths[r.wd]
		if !ok {
			continue
		}
		if r.mask&unix.IN_IGNORED != 0 {
			delete(i.paths, r.wd)
			if i.wds[path] == r.wd {
				delete(i.wds, path)
			}
			continue
		}
		if r.name == "" && path == i.root && r.mask&(unix.IN_DELETE_SELF|unix.IN_MOVE_SELF) != 0 {
			i.cancel = true
		}
		flags := PendingViaNotify
		if r.isDir() && r.mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0 {
			flags |= PendingRecursive
		}
		if r.name != "" {
			path = filepath.Join(path, r.name)
		}
		dbgprintf("inotify %s: %v", i.root, r)
		sink.add(path, now, flags)
		added = true
	}
	cancelSelf = i.cancel
	i.mu.Unlock()
	return added, cancelSelf
}

func (i *inotifyWatcher) requestStop() {
	if i.stopped.Swap(true) {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || i.efd == -1 {
		return
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(i.efd, one[:]); err != nil {
		dbgprintf("inotify %s: eventfd write: %v", i.root, err)
	}
}

func (i *inotifyWatcher) close() error {
	i.stopped.Store(true)
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	if i.fd == -1 {
		return nil
	}
	return nonil(unix.Close(i.fd), unix.Close(i.efd))
}
