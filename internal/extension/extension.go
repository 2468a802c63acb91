// Package extension defines the contract documentation extensions implement
// and the machinery for loading them from shared modules.
//
// Two contracts are supported. A native extension exports a value that
// implements Extension directly. A function-table extension exports a
// FuncTable, which is wrapped in an Adapter so the host sees the same
// Extension surface either way.
package extension

import "github.com/dgallion1/docview/internal/doctree"

// Document is the renderable result for a node. When IsReference is true,
// Text is a locator (usually a URI) rather than inline HTML.
type Document struct {
	Text        string
	IsReference bool
}

// Extension parses documentation sources into trees and serves their content.
//
// Implementations must not panic. Parse returns nil for paths it does not
// handle or fails to read; Content returns the zero Document when it has
// nothing to offer.
type Extension interface {
	Level() Level
	Parse(path string) *doctree.Node
	Content(node *doctree.Node) Document
}

// Briefer is implemented by extensions that can summarize a node.
type Briefer interface {
	Brief(node *doctree.Node) string
}

// Detailer is implemented by extensions that can describe a node in full.
type Detailer interface {
	Details(node *doctree.Node) string
}

// Sectioner is implemented by extensions that can return a named section
// of a node.
type Sectioner interface {
	Section(node *doctree.Node, name string) string
}

// Releaser is implemented by extensions that can free one tree they built
// without being closed. After Release, nodes of that tree must not be used.
type Releaser interface {
	Release(root *doctree.Node)
}

// Brief returns ext's brief for node, or "" if ext has none.
func Brief(ext Extension, node *doctree.Node) string {
	if b, ok := ext.(Briefer); ok {
		return b.Brief(node)
	}
	return ""
}

// Details returns ext's details for node, or "" if ext has none.
func Details(ext Extension, node *doctree.Node) string {
	if d, ok := ext.(Detailer); ok {
		return d.Details(node)
	}
	return ""
}

// Section returns the named section of node, or "" if ext has none.
func Section(ext Extension, node *doctree.Node, name string) string {
	if s, ok := ext.(Sectioner); ok {
		return s.Section(node, name)
	}
	return ""
}
