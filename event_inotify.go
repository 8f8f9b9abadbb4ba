// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux
// +build linux

package notify

import (
	"strings"

	"golang.org/x/sys/unix"
)

// inotifyMask is the set of inotify events the root watcher subscribes to.
const inotifyMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_MODIFY |
	unix.IN_ATTRIB | unix.IN_CLOSE_WRITE | unix.IN_MOVED_FROM |
	unix.IN_MOVED_TO | unix.IN_DELETE_SELF | unix.IN_MOVE_SELF |
	unix.IN_EXCL_UNLINK

var osestr = map[uint32]string{
	unix.IN_ACCESS:        "IN_ACCESS",
	unix.IN_ATTRIB:        "IN_ATTRIB",
	unix.IN_CLOSE_NOWRITE: "IN_CLOSE_NOWRITE",
	unix.IN_CLOSE_WRITE:   "IN_CLOSE_WRITE",
	unix.IN_CREATE:        "IN_CREATE",
	unix.IN_DELETE:        "IN_DELETE",
	unix.IN_DELETE_SELF:   "IN_DELETE_SELF",
	unix.IN_MODIFY:        "IN_MODIFY",
	unix.IN_MOVED_FROM:    "IN_MOVED_FROM",
	unix.IN_MOVED_TO:      "IN_MOVED_TO",
	unix.IN_MOVE_SELF:     "IN_MOVE_SELF",
	unix.IN_OPEN:          "IN_OPEN",
	unix.IN_IGNORED:       "IN_IGNORED",
	unix.IN_Q_OVERFLOW:    "IN_Q_OVERFLOW",
	unix.IN_ISDIR:         "IN_ISDIR",
}

// inotifyRecord is a decoded inotify_event.
type inotifyRecord struct {
	wd   int32
	mask uint32
	name string
}

func (r inotifyRecord) isDir() bool { return r.mask&unix.IN_ISDIR != 0 }

func (r inotifyRecord) String() string {
	var s []string
	for bit, name := range osestr {
		if r.mask&bit != 0 {
			s = append(s, name)
		}
	}
	return strings.Join(s, "|") + "@" + r.name
}
