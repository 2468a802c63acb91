// Package search finds document nodes by title or synonym prefix.
package search

import (
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
)

// Matches reports whether query is a byte-exact prefix of node's title or
// of any of its synonyms.
func Matches(node *doctree.Node, query string) bool {
	if strings.HasPrefix(node.Title, query) {
		return true
	}
	for _, syn := range node.Synonyms {
		if strings.HasPrefix(syn, query) {
			return true
		}
	}
	return false
}

// Search visits every node under every root and returns the ones that
// match query. A matching node does not stop its descendants from being
// checked. The result order is not part of the contract.
func Search(query string, roots []*doctree.Node) []*doctree.Node {
	var matches []*doctree.Node
	for _, root := range roots {
		if root == nil {
			continue
		}
		root.Walk(func(n *doctree.Node) bool {
			if Matches(n, query) {
				matches = append(matches, n)
			}
			return true
		})
	}
	return matches
}
