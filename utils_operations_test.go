// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"os"
	"path/filepath"
	"strings"
)

type FileOperation struct {
	Action func()
	Events []EventInfo
}

func (cas FileOperation) String() string {
	s := make([]string, 0, len(cas.Events))
	for _, ei := range cas.Events {
		s = append(s, "Event("+ei.Flags().String()+")@"+filepath.FromSlash(ei.Path()))
	}
	return strings.Join(s, ", ")
}

func create(n *N, path string) FileOperation {
	return FileOperation{
		Action: func() {
			isdir, err := tmpcreate(n.root, filepath.FromSlash(path))
			if err != nil {
				n.t.Fatalf("tmpcreate(%q, %q)=%v", n.root, path, err)
			}
			if isdir {
				dbgprintf("[FS] os.Mkdir(%q)\n", path)
			} else {
				dbgprintf("[FS] os.Create(%q)\n", path)
			}
		},
		Events: []EventInfo{
			&Call{P: path, PF: PendingViaNotify},
		},
	}
}

func remove(n *N, path string) FileOperation {
	return FileOperation{
		Action: func() {
			if err := os.RemoveAll(n.path(path)); err != nil {
				n.t.Fatal(err)
			}
			dbgprintf("[FS] os.Remove(%q)\n", path)
		},
		Events: []EventInfo{
			&Call{P: path, PF: PendingViaNotify},
		},
	}
}

func rename(n *N, oldpath, newpath string) FileOperation {
	return FileOperation{
		Action: func() {
			if err := os.Rename(n.path(oldpath), n.path(newpath)); err != nil {
				n.t.Fatal(err)
			}
			dbgprintf("[FS] os.Rename(%q, %q)\n", oldpath, newpath)
		},
		Events: []EventInfo{
			&Call{P: oldpath, PF: PendingViaNotify},
			&Call{P: newpath, PF: PendingViaNotify},
		},
	}
}

func write(n *N, path string, p []byte) FileOperation {
	return FileOperation{
		Action: func() {
			f, err := os.OpenFile(n.path(path), os.O_WRONLY, 0644)
			if err != nil {
				n.t.Fatalf("OpenFile(%q)=%v", path, err)
			}
			if _, err := f.Write(p); err != nil {
				n.t.Fatalf("Write(%q)=%v", path, err)
			}
			if err := nonil(f.Sync(), f.Close()); err != nil {
				n.t.Fatalf("Sync(%q)/Close(%q)=%v", path, path, err)
			}
			dbgprintf("[FS] Write(%q)\n", path)
		},
		Events: []EventInfo{
			&Call{P: path, PF: PendingViaNotify},
		},
	}
}
