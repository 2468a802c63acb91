package main

import "github.com/fsnotify/fsnotify"

// Relevant exposes the watch event filter to tests.
func Relevant(c *WatchCmd, event fsnotify.Event, dir bool) bool {
	return c.relevant(event, dir)
}
