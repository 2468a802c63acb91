package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	for _, path := range c.Paths {
		if _, err := parse(deps, path); err != nil {
			return err
		}
	}
	printMatches(deps.Stdout, c.Query, deps.Registry.Search(c.Query))
	return nil
}

// printMatches writes the breadcrumb of every match.
func printMatches(w io.Writer, query string, matches []*doctree.Node) {
	if len(matches) == 0 {
		fmt.Fprintf(w, "No nodes match %q.\n", query)
		return
	}
	for _, n := range matches {
		fmt.Fprintln(w, strings.Join(n.Path(), " > "))
	}
}
