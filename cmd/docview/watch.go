package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/fsnotify/fsnotify"
)

// Run executes the watch command. It prints the matches for the query,
// then drops and re-parses the tree whenever the source changes, until the
// context is cancelled.
func (c *WatchCmd) Run(deps *Dependencies) error {
	info, err := os.Stat(c.Path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// A single file is watched through its directory so editors that
	// replace the file on save are still seen.
	if info.IsDir() {
		err = watchTree(watcher, c.Path)
	} else {
		err = watcher.Add(filepath.Dir(c.Path))
	}
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.Path, err)
	}

	root, err := parse(deps, c.Path)
	if err != nil {
		return err
	}
	printMatches(deps.Stdout, c.Query, deps.Registry.Search(c.Query))

	var pending <-chan time.Time
	for {
		select {
		case <-deps.Ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !c.relevant(event, info.IsDir()) {
				continue
			}
			if info.IsDir() && event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						deps.Log.Warn("watch new directory failed", "path", event.Name, "error", err)
					}
				}
			}
			deps.Log.Debug("source changed", "path", event.Name, "op", event.Op.String())
			pending = time.After(c.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			deps.Log.Warn("watcher error", "error", err)

		case <-pending:
			pending = nil
			root = c.reparse(deps, root)
		}
	}
}

// relevant filters out events for other files in a watched parent
// directory and for hidden entries.
func (c *WatchCmd) relevant(event fsnotify.Event, dir bool) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !dir {
		return filepath.Clean(event.Name) == filepath.Clean(c.Path)
	}
	rel, err := filepath.Rel(c.Path, event.Name)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." {
			return false
		}
	}
	return true
}

// reparse invalidates the previous tree and parses the source again. The
// old tree must not be used afterwards.
func (c *WatchCmd) reparse(deps *Dependencies, old *doctree.Node) *doctree.Node {
	if old != nil && deps.Registry.Validate(old) {
		if err := deps.Registry.Invalidate(old); err != nil {
			deps.Log.Warn("invalidate failed", "error", err)
		}
	}

	fmt.Fprintf(deps.Stdout, "-- %s changed\n", c.Path)
	root, err := deps.Registry.ParseTree(c.Path)
	switch {
	case err != nil:
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return nil
	case root == nil:
		fmt.Fprintf(deps.Stderr, "error: no extension can read %s\n", c.Path)
		return nil
	}
	printMatches(deps.Stdout, c.Query, deps.Registry.Search(c.Query))
	return root
}

// watchTree adds dir and every non-hidden directory below it.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
