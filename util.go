// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"os"
	"path/filepath"
	"strings"
)

const sep = string(os.PathSeparator)

// nonil gives first non-nil error from the given arguments.
func nonil(err ...error) error {
	for _, err := range err {
		if err != nil {
			return err
		}
	}
	return nil
}

// canonical resolves any symlink in the given path and returns it in a clean,
// absolute form.
func canonical(p string) (string, error) {
	p, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(p)
}

// cleanpath canonicalizes p and checks that it names a directory.
func cleanpath(p string) (string, error) {
	p, err := canonical(p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", &os.PathError{Op: "watch", Path: p, Err: errNotDirectory}
	}
	return p, nil
}

// isParentOrSelf reports whether parent is child or one of its ancestors.
func isParentOrSelf(parent, child string) bool {
	if len(child) < len(parent) || child[:len(parent)] != parent {
		return false
	}
	return len(child) == len(parent) || parent == sep || os.IsPathSeparator(child[len(parent)])
}

func splitPath(rel string) []string {
	return strings.Split(filepath.Clean(rel), sep)
}
