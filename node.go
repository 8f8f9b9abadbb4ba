// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import "path/filepath"

// dir is a directory known to a root. The root directory itself has no
// parent and is named by its absolute path.
type dir struct {
	name   string
	parent *dir
	dirs   map[string]*dir
	files  map[string]*file
}

func newDir(name string, parent *dir) *dir {
	return &dir{
		name:   name,
		parent: parent,
		dirs:   make(map[string]*dir),
		files:  make(map[string]*file),
	}
}

func (d *dir) fullPath() string {
	if d.parent == nil {
		return d.name
	}
	return filepath.Join(d.parent.fullPath(), d.name)
}

func (d *dir) childDir(name string) *dir {
	c, ok := d.dirs[name]
	if !ok {
		c = newDir(name, d)
		d.dirs[name] = c
	}
	return c
}

func (d *dir) childFile(name string) (*file, bool) {
	f, ok := d.files[name]
	if !ok {
		f = &file{name: name, parent: d}
		d.files[name] = f
	}
	return f, !ok
}

// lookup returns the directory at the path relative to d, or nil.
func (d *dir) lookup(rel string) *dir {
	if rel == "." || rel == "" {
		return d
	}
	cur := d
	for _, name := range splitPath(rel) {
		next, ok := cur.dirs[name]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// forget drops the entry called name from d, whatever its kind.
func (d *dir) forget(name string) {
	delete(d.dirs, name)
	delete(d.files, name)
}

type file struct {
	name   string
	parent *dir
}

func (f *file) fullPath() string {
	return filepath.Join(f.parent.fullPath(), f.name)
}
