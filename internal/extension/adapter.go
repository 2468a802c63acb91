package extension

import (
	"errors"

	"github.com/dgallion1/docview/internal/doctree"
)

// ErrIncompleteTable is returned when a function table lacks a mandatory entry.
var ErrIncompleteTable = errors.New("function table is missing mandatory entries")

// RawNode is the plain-data tree a function-table extension hands back.
// The extension owns it; the Adapter only reads it.
type RawNode struct {
	Parent   *RawNode
	Title    string
	Synonyms []string
	Children []*RawNode
}

// FuncTable is the function-table extension contract. Applicability, Parse
// and Content are mandatory; the rest may be nil.
//
// Release, when set, is called once for every raw node of a tree the
// Adapter frees, so the table side can drop whatever it keeps per node.
type FuncTable struct {
	Applicability func() Level
	Parse         func(path string) *RawNode
	Content       func(node *RawNode) Document
	Brief         func(node *RawNode) string
	Details       func(node *RawNode) string
	Section       func(node *RawNode, name string) string
	Release       func(node *RawNode)
}

// Validate checks that the mandatory entries are present.
func (t *FuncTable) Validate() error {
	if t == nil || t.Applicability == nil || t.Parse == nil || t.Content == nil {
		return ErrIncompleteTable
	}
	return nil
}

var (
	_ Extension = (*Adapter)(nil)
	_ Briefer   = (*Adapter)(nil)
	_ Detailer  = (*Adapter)(nil)
	_ Sectioner = (*Adapter)(nil)
	_ Releaser  = (*Adapter)(nil)
)

// Adapter presents a FuncTable as an Extension. It converts every RawNode
// tree it receives into doctree nodes and owns those nodes until Close.
type Adapter struct {
	table FuncTable
	roots []*doctree.Node
	raw   map[*doctree.Node]*RawNode
}

// NewAdapter wraps table, failing with ErrIncompleteTable if a mandatory
// entry is nil.
func NewAdapter(table *FuncTable) (*Adapter, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		table: *table,
		raw:   make(map[*doctree.Node]*RawNode),
	}, nil
}

func (a *Adapter) Level() Level {
	return a.table.Applicability()
}

// Parse asks the table for a tree and converts it.
func (a *Adapter) Parse(path string) *doctree.Node {
	src := a.table.Parse(path)
	if src == nil {
		return nil
	}
	root := a.convert(src)
	a.roots = append(a.roots, root)
	return root
}

// convert copies src into a fresh doctree, remembering which raw node each
// converted node came from. Nil children are skipped, and so is any raw
// node already converted, which keeps a cyclic table tree finite.
func (a *Adapter) convert(src *RawNode) *doctree.Node {
	type pending struct {
		src    *RawNode
		parent *doctree.Node
	}

	var root *doctree.Node
	seen := make(map[*RawNode]bool)
	stack := []pending{{src: src}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[p.src] {
			continue
		}
		seen[p.src] = true

		node := &doctree.Node{
			Title:    p.src.Title,
			Synonyms: append([]string(nil), p.src.Synonyms...),
		}
		a.raw[node] = p.src
		if p.parent == nil {
			root = node
		} else {
			p.parent.AddChild(node)
		}

		for i := len(p.src.Children) - 1; i >= 0; i-- {
			if c := p.src.Children[i]; c != nil {
				stack = append(stack, pending{src: c, parent: node})
			}
		}
	}
	return root
}

// Raw returns the table-side node node was converted from.
func (a *Adapter) Raw(node *doctree.Node) (*RawNode, bool) {
	raw, ok := a.raw[node]
	return raw, ok
}

func (a *Adapter) Content(node *doctree.Node) Document {
	raw, ok := a.raw[node]
	if !ok {
		return Document{}
	}
	return a.table.Content(raw)
}

func (a *Adapter) Brief(node *doctree.Node) string {
	raw, ok := a.raw[node]
	if !ok || a.table.Brief == nil {
		return ""
	}
	return a.table.Brief(raw)
}

func (a *Adapter) Details(node *doctree.Node) string {
	raw, ok := a.raw[node]
	if !ok || a.table.Details == nil {
		return ""
	}
	return a.table.Details(raw)
}

func (a *Adapter) Section(node *doctree.Node, name string) string {
	raw, ok := a.raw[node]
	if !ok || a.table.Section == nil {
		return ""
	}
	return a.table.Section(raw, name)
}

// Release frees one tree previously returned by Parse.
func (a *Adapter) Release(root *doctree.Node) {
	for i, r := range a.roots {
		if r == root {
			a.roots = append(a.roots[:i], a.roots[i+1:]...)
			a.free(root)
			return
		}
	}
}

func (a *Adapter) free(root *doctree.Node) {
	root.WalkPostOrder(func(n *doctree.Node) {
		if raw, ok := a.raw[n]; ok && a.table.Release != nil {
			a.table.Release(raw)
		}
		delete(a.raw, n)
		n.Children = nil
		n.Parent = nil
	})
}

// Close releases every converted tree, children before parents. Nodes
// handed out earlier are detached and no longer map to table nodes.
func (a *Adapter) Close() error {
	for _, root := range a.roots {
		a.free(root)
	}
	a.roots = nil
	return nil
}
