// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// cookieSync implements the consistency barrier of a root. A cookie is a
// uniquely named file created in every cookie directory; once the watcher has
// reported all of them, every change made before the cookies were written has
// been observed too.
type cookieSync struct {
	mu      sync.Mutex
	dirs    map[string]struct{}
	cookies map[string]chan struct{}
	prefix  string
	serial  uint64
}

func newCookieSync(prefix string) *cookieSync {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &cookieSync{
		dirs:    make(map[string]struct{}),
		cookies: make(map[string]chan struct{}),
		prefix:  fmt.Sprintf("%s%s-%d-", prefix, host, os.Getpid()),
	}
}

func (c *cookieSync) addCookieDir(path string) {
	c.mu.Lock()
	c.dirs[path] = struct{}{}
	c.mu.Unlock()
	dbgprintf("cookie: added cookie dir %s", path)
}

func (c *cookieSync) removeCookieDir(path string) {
	c.mu.Lock()
	delete(c.dirs, path)
	for name, ch := range c.cookies {
		if filepath.Dir(name) == path {
			delete(c.cookies, name)
			close(ch)
		}
	}
	c.mu.Unlock()
	dbgprintf("cookie: removed cookie dir %s", path)
}

func (c *cookieSync) cookieDirs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirs := make([]string, 0, len(c.dirs))
	for d := range c.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// sync writes a new cookie into every cookie directory and returns the
// channels closed once each of them has been observed.
func (c *cookieSync) sync() ([]string, []chan struct{}, error) {
	c.mu.Lock()
	var names []string
	var chans []chan struct{}
	for d := range c.dirs {
		name := filepath.Join(d, fmt.Sprintf("%s%d", c.prefix, c.serial))
		c.serial++
		ch := make(chan struct{})
		c.cookies[name] = ch
		names = append(names, name)
		chans = append(chans, ch)
	}
	c.mu.Unlock()

	written := names[:0:0]
	var waits []chan struct{}
	for i, name := range names {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
		if err == nil {
			err = f.Close()
		}
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// The directory is gone; its watcher reports that on its own.
			dbgprintf("cookie: skipping %s: %v", name, err)
			c.forget(name)
			continue
		case err != nil:
			c.forget(names...)
			return nil, nil, fmt.Errorf("sync: create cookie %q: %w", name, err)
		}
		dbgprintf("cookie: created %s", name)
		written = append(written, name)
		waits = append(waits, chans[i])
	}
	return written, waits, nil
}

// syncToNow blocks until every cookie written by this call has been
// observed, or ctx is done.
func (c *cookieSync) syncToNow(ctx context.Context) error {
	names, chans, err := c.sync()
	if err != nil {
		return err
	}
	for _, ch := range chans {
		select {
		case <-ch:
		case <-ctx.Done():
			c.forget(names...)
			return fmt.Errorf("sync: waiting for cookies to be observed: %w", ctx.Err())
		}
	}
	return nil
}

// notifyCookie is called for every changed path that looks like a cookie.
func (c *cookieSync) notifyCookie(path string) {
	c.mu.Lock()
	ch, ok := c.cookies[path]
	if ok {
		delete(c.cookies, path)
	}
	c.mu.Unlock()
	dbgprintf("cookie: %s observed=%v", path, ok)
	if ok {
		close(ch)
		os.Remove(path)
	}
}

// forget drops the given cookies without signaling their waiters and
// removes their files.
func (c *cookieSync) forget(names ...string) {
	c.mu.Lock()
	for _, name := range names {
		delete(c.cookies, name)
	}
	c.mu.Unlock()
	for _, name := range names {
		os.Remove(name)
	}
}

// abortAll releases every waiter and removes the outstanding cookie files.
func (c *cookieSync) abortAll() {
	c.mu.Lock()
	cookies := c.cookies
	c.cookies = make(map[string]chan struct{})
	c.mu.Unlock()
	for name, ch := range cookies {
		close(ch)
		os.Remove(name)
	}
}
