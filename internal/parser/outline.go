package parser

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dgallion1/docview/internal/doctree"
)

// outline builds a Document from a flat stream of headings and text
// blocks, nesting each heading under the nearest shallower one.
type outline struct {
	doc   *Document
	stack []outlineEntry
	text  strings.Builder
}

type outlineEntry struct {
	node  *doctree.Node
	level int
}

// newOutline starts a document whose root is titled after filename. The
// root is level 0 so every heading nests under it.
func newOutline(filename string) *outline {
	root := doctree.New(titleFor(filename), filepath.Base(filename))
	o := &outline{
		doc: &Document{
			Root:     root,
			Sections: make(map[*doctree.Node]*Section),
		},
	}
	o.doc.Sections[root] = &Section{}
	o.stack = []outlineEntry{{node: root, level: 0}}
	return o
}

// retitle replaces the root title, keeping the file name as a synonym.
func (o *outline) retitle(title string) {
	if title != "" {
		o.doc.Root.Title = title
	}
}

func (o *outline) current() *doctree.Node {
	return o.stack[len(o.stack)-1].node
}

// flush moves buffered text into the section of the current node.
func (o *outline) flush() {
	t := strings.TrimSpace(o.text.String())
	o.text.Reset()
	if t == "" {
		return
	}
	sec := o.doc.Sections[o.current()]
	if sec.Text != "" {
		sec.Text += "\n\n" + t
	} else {
		sec.Text = t
	}
}

// heading opens a new section at level and returns its node.
func (o *outline) heading(level int, title, anchor string) *doctree.Node {
	o.flush()

	var synonyms []string
	if anchor != "" {
		synonyms = append(synonyms, anchor)
	}
	node := doctree.New(title, synonyms...)

	// Pop until the top of the stack is shallower than the new heading.
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	o.current().AddChild(node)
	o.doc.Sections[node] = &Section{Anchor: anchor}
	o.stack = append(o.stack, outlineEntry{node: node, level: level})
	return node
}

// paragraph buffers a block of text for the current section.
func (o *outline) paragraph(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if o.text.Len() > 0 {
		o.text.WriteString("\n\n")
	}
	o.text.WriteString(t)
}

// leaf adds a finished child directly under the root.
func (o *outline) leaf(title string, sec *Section, synonyms ...string) *doctree.Node {
	node := o.doc.Root.AddChild(doctree.New(title, synonyms...))
	o.doc.Sections[node] = sec
	return node
}

func (o *outline) section(n *doctree.Node) *Section {
	return o.doc.Sections[n]
}

func (o *outline) finish() *Document {
	o.flush()
	return o.doc
}

// slug turns a heading into the anchor most renderers generate for it:
// lower case, spaces to dashes, punctuation dropped.
func slug(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// firstLine returns the first line of t, cut to max runes.
func firstLine(t string, max int) string {
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(t)
	if r := []rune(t); len(r) > max {
		return strings.TrimSpace(string(r[:max])) + "…"
	}
	return t
}
