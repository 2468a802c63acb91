package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
)

// Run executes the tree command.
func (c *TreeCmd) Run(deps *Dependencies) error {
	root, err := parse(deps, c.Path)
	if err != nil {
		return err
	}
	printTree(deps.Stdout, root)
	return nil
}

// printTree writes one line per node, indented by depth, with synonyms in
// brackets.
func printTree(w io.Writer, root *doctree.Node) {
	base := len(root.Path())
	root.Walk(func(n *doctree.Node) bool {
		indent := strings.Repeat("  ", len(n.Path())-base)
		if len(n.Synonyms) > 0 {
			fmt.Fprintf(w, "%s%s [%s]\n", indent, n.Title, strings.Join(n.Synonyms, ", "))
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, n.Title)
		}
		return true
	})
}
