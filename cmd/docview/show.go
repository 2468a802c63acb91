package main

import (
	"fmt"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/registry"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	root, err := parse(deps, c.Path)
	if err != nil {
		return err
	}

	var node *doctree.Node
	root.Walk(func(n *doctree.Node) bool {
		if node == nil && n.Title == c.Title {
			node = n
		}
		return node == nil
	})
	if node == nil {
		fmt.Fprintf(deps.Stderr, "error: no node titled %q in %s. Use 'docview tree %s' to see the titles.\n", c.Title, c.Path, c.Path)
		return fmt.Errorf("node %q: %w", c.Title, registry.ErrNotFound)
	}

	var text string
	switch {
	case c.Brief:
		text, err = deps.Registry.Brief(node)
	case c.Details:
		text, err = deps.Registry.Details(node)
	case c.Section != "":
		text, err = deps.Registry.Section(node, c.Section)
	default:
		doc, cerr := deps.Registry.Content(node)
		text, err = doc.Text, cerr
		if doc.IsReference {
			text = "See " + text
		}
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	fmt.Fprintln(deps.Stdout, text)
	return nil
}
