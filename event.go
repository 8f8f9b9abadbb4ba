// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"strings"
	"time"
)

// PendingFlags describes why a path was queued for examination.
type PendingFlags uint8

const (
	// PendingViaNotify marks a change that was reported by a notification
	// mechanism rather than discovered by a crawl.
	PendingViaNotify PendingFlags = 1 << iota
	// PendingRecursive asks for the whole subtree below the path to be
	// examined.
	PendingRecursive
	// PendingDesynced marks the result of a forced or out-of-band rescan: the
	// notification stream lost track of what happened below the path.
	PendingDesynced
	// PendingCrawlOnly is used for crawl bookkeeping and never obsoletes
	// children of the path.
	PendingCrawlOnly
)

var pendingFlagNames = []struct {
	flag PendingFlags
	name string
}{
	{PendingViaNotify, "VIA_NOTIFY"},
	{PendingRecursive, "RECURSIVE"},
	{PendingDesynced, "DESYNCED"},
	{PendingCrawlOnly, "CRAWL_ONLY"},
}

// String implements fmt.Stringer interface.
func (f PendingFlags) String() string {
	var s []string
	for _, fn := range pendingFlagNames {
		if f&fn.flag != 0 {
			s = append(s, fn.name)
		}
	}
	if len(s) == 0 {
		return "<none>"
	}
	return strings.Join(s, "|")
}

// PendingEvent identifies a changed path, the time it was observed and how it
// should be treated.
type PendingEvent struct {
	Path      string
	Timestamp time.Time
	Flags     PendingFlags
}

// EventInfo describes an event reported by the notify package.
type EventInfo interface {
	Path() string         // absolute path of the changed file or directory
	Flags() PendingFlags  // how the change was observed
	Timestamp() time.Time // when the change was observed
	Sys() interface{}     // underlying data, a *PendingEvent
}

type event struct {
	pending PendingEvent
}

func (e *event) Path() string         { return e.pending.Path }
func (e *event) Flags() PendingFlags  { return e.pending.Flags }
func (e *event) Timestamp() time.Time { return e.pending.Timestamp }
func (e *event) Sys() interface{}     { return &e.pending }
func (e *event) String() string       { return e.pending.Flags.String() + "@" + e.pending.Path }
