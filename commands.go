// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownCommand is returned by Command for names nobody registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrWrongArgCount is returned when a command gets too few or too many
	// arguments.
	ErrWrongArgCount = errors.New("wrong number of arguments")
	// ErrNotSplitWatcher is returned when a root does not use the split watcher.
	ErrNotSplitWatcher = errors.New("root is not using the split watcher")
	// ErrInvalidRecrawlPath is returned for a recrawl path that is not a
	// non-empty string.
	ErrInvalidRecrawlPath = errors.New("invalid value for argument 2, expected a string naming the path to trigger a recrawl on")
	// ErrInvalidRoot is returned when the root argument is not a string.
	ErrInvalidRoot = errors.New("invalid value for argument 1, expected a string naming a watched root")
)

// recrawlInjector is implemented by watchers that accept injected recrawls.
type recrawlInjector interface {
	injectRecrawl(path string)
}

// subWatcherLister is implemented by watchers with per-directory watchers.
type subWatcherLister interface {
	subWatcherPaths() []string
}

// Response is the result of a successful command.
type Response map[string]interface{}

type command struct {
	nargs int
	run   func(n *Notify, args []interface{}) (Response, error)
}

var commands = map[string]command{
	"debug-split-recrawl":  {nargs: 3, run: cmdSplitRecrawl},
	"debug-split-watchers": {nargs: 2, run: cmdSplitWatchers},
}

// Commands lists the names accepted by Command.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command runs an administrative command. args holds the command name
// followed by its arguments, typically decoded from a JSON array:
//
//	["debug-split-recrawl", "/path/to/root", "/path/to/root/dir"]
//	["debug-split-watchers", "/path/to/root"]
//
// A failed command changes nothing.
func (n *Notify) Command(args []interface{}) (Response, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing command name", ErrUnknownCommand)
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCommand, args[0])
	}
	cmd, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	if len(args) != cmd.nargs {
		return nil, fmt.Errorf("%w for '%s'", ErrWrongArgCount, name)
	}
	return cmd.run(n, args)
}

func (n *Notify) resolveRoot(args []interface{}) (*Root, error) {
	path, ok := args[1].(string)
	if !ok || path == "" {
		return nil, ErrInvalidRoot
	}
	r, err := n.Root(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve root %s: %w", path, err)
	}
	return r, nil
}

func cmdSplitRecrawl(n *Notify, args []interface{}) (Response, error) {
	r, err := n.resolveRoot(args)
	if err != nil {
		return nil, err
	}
	if _, ok := r.w.(recrawlInjector); !ok {
		return nil, ErrNotSplitWatcher
	}
	path, ok := args[2].(string)
	if !ok {
		return nil, ErrInvalidRecrawlPath
	}
	if err := r.InjectRecrawl(path); err != nil {
		return nil, err
	}
	return Response{}, nil
}

func cmdSplitWatchers(n *Notify, args []interface{}) (Response, error) {
	r, err := n.resolveRoot(args)
	if err != nil {
		return nil, err
	}
	paths, err := r.SubWatchers()
	if err != nil {
		return nil, err
	}
	return Response{"root": r.Path(), "watchers": paths}, nil
}
