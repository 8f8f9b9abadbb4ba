// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// fakeName returns a random name that never looks like a cookie.
func fakeName() string {
	return strings.ToLower(gofakeit.LetterN(8))
}

// fakeFile returns a random relative file path level directories deep.
func fakeFile(level int) string {
	var parts []string
	for range level {
		parts = append(parts, fakeName())
	}
	parts = append(parts, fmt.Sprintf("%s.%s", fakeName(), gofakeit.FileExtension()))
	return filepath.Join(parts...)
}

// fakeDir returns a random relative directory path, marked by a trailing
// slash, level directories deep.
func fakeDir(level int) string {
	var parts []string
	for range level {
		parts = append(parts, fakeName())
	}
	return filepath.Join(parts...) + "/"
}

func tmpcreateall(tmp string, path string) error {
	isdir := isDir(path)
	path = filepath.Join(tmp, filepath.FromSlash(path))
	if isdir {
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := nonil(f.Sync(), f.Close()); err != nil {
			return err
		}
	}
	return nil
}

func tmpcreate(root, path string) (bool, error) {
	isdir := isDir(path)
	path = filepath.Join(root, filepath.FromSlash(path))
	if isdir {
		if err := os.Mkdir(path, 0755); err != nil {
			return false, err
		}
	} else {
		f, err := os.Create(path)
		if err != nil {
			return false, err
		}
		if err := nonil(f.Sync(), f.Close()); err != nil {
			return false, err
		}
	}
	return isdir, nil
}

// tmptree creates every path of list below root, or below a new temporary
// directory when root is empty.
func tmptree(root string, list ...string) (string, error) {
	var err error
	if root == "" {
		if root, err = os.MkdirTemp(testdata_destination()); err != nil {
			return "", err
		}
	}
	for _, p := range list {
		if err := tmpcreateall(root, p); err != nil {
			return "", err
		}
	}
	return root, nil
}

// randomtree creates a temporary tree with n top-level directories, each
// holding a couple of files at random depth.
func randomtree(n int) (string, []string, error) {
	var list []string
	for range n {
		top := fakeName()
		list = append(list, top+"/")
		for range 2 {
			list = append(list, filepath.Join(top, fakeFile(gofakeit.IntRange(0, 2))))
		}
	}
	root, err := tmptree("", list...)
	return root, list, err
}

func callern(n int) string {
	_, file, line, ok := runtime.Caller(n)
	if !ok {
		return "<unknown>"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

func caller() string {
	return callern(3)
}

func timeout() time.Duration {
	if s := os.Getenv("NOTIFY_TIMEOUT"); s != "" {
		if t, err := time.ParseDuration(s); err == nil {
			return t
		}
	}
	return 5 * time.Second
}

func testdata_destination() (string, string) {
	if s := os.Getenv("NOTIFY_TMP"); s != "" {
		return filepath.Split(s)
	}
	return "", "notify-"
}

func isDir(path string) bool {
	r := path[len(path)-1]
	return r == '\\' || r == '/'
}

// EqualEventInfo checks that got reports the path of want and carries at
// least its flags.
func EqualEventInfo(want, got EventInfo) error {
	path := strings.TrimRight(filepath.FromSlash(want.Path()), `/\`)
	if !strings.HasSuffix(got.Path(), path) {
		return fmt.Errorf("want Path()=%s; got %s (flags=%v)", path, got.Path(),
			want.Flags())
	}
	if got.Flags()&want.Flags() != want.Flags() {
		return fmt.Errorf("want Flags()=%v; got %v (path=%s)", want.Flags(),
			got.Flags(), want.Path())
	}
	return nil
}

func EqualCall(want, got Call) error {
	if want.F != got.F {
		return fmt.Errorf("want F=%v; got %v (want.P=%q, got.P=%q)", want.F, got.F, want.P, got.P)
	}
	if got.PF != want.PF {
		return fmt.Errorf("want PF=%v; got %v (want.P=%q, got.P=%q)", want.PF, got.PF, want.P, got.P)
	}
	if want := filepath.FromSlash(want.P); !strings.HasSuffix(got.P, want) {
		return fmt.Errorf("want P=%s; got %s", want, got.P)
	}
	return nil
}

func drainall(c <-chan EventInfo) (ei []EventInfo) {
	time.Sleep(50 * time.Millisecond)
	for {
		select {
		case e := <-c:
			ei = append(ei, e)
			runtime.Gosched()
		default:
			return
		}
	}
}

// eventually polls cond until it holds or the test timeout elapses.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(timeout())
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
