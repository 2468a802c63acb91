// Package builtin provides the extensions compiled into docview: one per
// supported file format plus a directory extension that stitches them
// together.
package builtin

import (
	"bytes"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/extension"
	"github.com/dgallion1/docview/internal/parser"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

// Compile-time interface verification.
var (
	_ extension.Extension = (*Format)(nil)
	_ extension.Briefer   = (*Format)(nil)
	_ extension.Detailer  = (*Format)(nil)
	_ extension.Sectioner = (*Format)(nil)
	_ extension.Releaser  = (*Format)(nil)
	_ io.Closer           = (*Format)(nil)
)

// sniffSize is how much of an unknown file is read to decide whether it
// is text.
const sniffSize = 8 * 1024

// Format is an extension for one file format, backed by a parser.
type Format struct {
	name   string
	level  extension.Level
	anyUTF bool // also accept files of any extension that look like UTF-8 text
	pre    bool // render plain text as <pre> instead of paragraphs
	parser parser.Parser
	log    *slog.Logger

	docs  map[*doctree.Node]*parsed // root -> document
	owner map[*doctree.Node]*parsed // every node -> document
	cache *lru.Cache[*doctree.Node, string]
}

type parsed struct {
	*parser.Document
	path string
}

// newFormat builds the format for a parser kind. The kind doubles as the
// format name, and the parser package decides which extensions it reads.
func newFormat(kind string, level extension.Level, opts Options) *Format {
	opts = opts.withDefaults()
	p, err := parser.ForKind(kind, parser.Options{PDFFallbackPdftotext: opts.PDFFallbackPdftotext})
	if err != nil {
		// Only reachable with a kind the parser package does not define.
		panic(err)
	}
	cache, err := lru.New[*doctree.Node, string](opts.CacheSize)
	if err != nil {
		// Only reachable with a non-positive size, which withDefaults rules out.
		panic(err)
	}
	return &Format{
		name:   kind,
		level:  level,
		parser: p,
		log:    opts.Logger.With("extension", kind),
		docs:   make(map[*doctree.Node]*parsed),
		owner:  make(map[*doctree.Node]*parsed),
		cache:  cache,
	}
}

// Markdown handles .md and .markdown files.
func Markdown(opts Options) *Format {
	return newFormat(parser.KindMarkdown, extension.Small, opts)
}

// HTML handles .html and .htm files. Roots and anchored headings are
// served as references into the file.
func HTML(opts Options) *Format {
	return newFormat(parser.KindHTML, extension.Small, opts)
}

// DOCX handles Word documents.
func DOCX(opts Options) *Format {
	return newFormat(parser.KindDOCX, extension.Small, opts)
}

// PDF handles PDF files, one node per page.
func PDF(opts Options) *Format {
	return newFormat(parser.KindPDF, extension.Small, opts)
}

// CSV handles comma separated files.
func CSV(opts Options) *Format {
	f := newFormat(parser.KindCSV, extension.Medium, opts)
	f.pre = true
	return f
}

// Text is the catch-all: .txt files and any other file whose head is valid
// UTF-8 without NUL bytes.
func Text(opts Options) *Format {
	f := newFormat(parser.KindText, extension.Huge, opts)
	f.anyUTF = true
	f.pre = true
	return f
}

// Name is the name the format is registered under.
func (f *Format) Name() string { return f.name }

func (f *Format) Level() extension.Level { return f.level }

// Accepts reports whether path is a regular file this format reads.
func (f *Format) Accepts(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if parser.KindOf(path) == f.name {
		return true
	}
	return f.anyUTF && looksLikeText(path)
}

func (f *Format) Parse(path string) *doctree.Node {
	if !f.Accepts(path) {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		f.log.Debug("open failed", "path", path, "error", err)
		return nil
	}
	defer file.Close()

	doc, err := f.parser.Parse(file, path)
	if err != nil {
		f.log.Debug("parse failed", "path", path, "error", err)
		return nil
	}

	p := &parsed{Document: doc, path: path}
	f.docs[doc.Root] = p
	doc.Root.Walk(func(n *doctree.Node) bool {
		f.owner[n] = p
		return true
	})
	return doc.Root
}

// Content serves linked documents by reference and everything else as an
// HTML fragment. Fragments are cached per node.
func (f *Format) Content(node *doctree.Node) extension.Document {
	doc, ok := f.owner[node]
	if !ok {
		return extension.Document{}
	}
	sec := doc.Section(node)

	if doc.Linked && (node == doc.Root || sec.Anchor != "") {
		u := url.URL{Scheme: "file", Path: doc.path}
		if node != doc.Root {
			u.Fragment = sec.Anchor
		}
		return extension.Document{Text: u.String(), IsReference: true}
	}

	if text, ok := f.cache.Get(node); ok {
		return extension.Document{Text: text}
	}
	var text string
	if sec.Render != nil {
		text = sec.Render()
	} else {
		text = toHTML(sec.Text, f.pre)
	}
	f.cache.Add(node, text)
	return extension.Document{Text: text}
}

// Brief returns the first paragraph of the node's text.
func (f *Format) Brief(node *doctree.Node) string {
	doc, ok := f.owner[node]
	if !ok {
		return ""
	}
	brief, _, _ := strings.Cut(doc.Section(node).Text, "\n\n")
	return brief
}

// Details returns the full text of the node.
func (f *Format) Details(node *doctree.Node) string {
	doc, ok := f.owner[node]
	if !ok {
		return ""
	}
	return doc.Section(node).Text
}

// Section returns the text of the shallowest descendant of node titled
// name, or "" if there is none.
func (f *Format) Section(node *doctree.Node, name string) string {
	doc, ok := f.owner[node]
	if !ok {
		return ""
	}
	if n := nearest(node, name); n != nil {
		return doc.Section(n).Text
	}
	return ""
}

// Release forgets the tree rooted at root.
func (f *Format) Release(root *doctree.Node) {
	if _, ok := f.docs[root]; !ok {
		return
	}
	delete(f.docs, root)
	root.Walk(func(n *doctree.Node) bool {
		delete(f.owner, n)
		f.cache.Remove(n)
		return true
	})
}

// Close forgets every tree.
func (f *Format) Close() error {
	clear(f.docs)
	clear(f.owner)
	f.cache.Purge()
	return nil
}

// nearest finds the first descendant of node titled name in breadth-first
// order.
func nearest(node *doctree.Node, name string) *doctree.Node {
	queue := append([]*doctree.Node(nil), node.Children...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			continue
		}
		if n.Title == name {
			return n
		}
		queue = append(queue, n.Children...)
	}
	return nil
}

// toHTML escapes text into paragraphs, or a single <pre> block.
func toHTML(text string, pre bool) string {
	if text == "" {
		return ""
	}
	if pre {
		return "<pre>" + html.EscapeString(text) + "</pre>"
	}
	var b strings.Builder
	for i, para := range strings.Split(text, "\n\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return b.String()
}

func looksLikeText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	buf = buf[:n]
	if bytes.IndexByte(buf, 0) >= 0 {
		return false
	}
	if n == sniffSize {
		// Drop a rune cut off by the read boundary.
		for i := 0; i < utf8.UTFMax && len(buf) > 0; i++ {
			if utf8.RuneStart(buf[len(buf)-1]) {
				buf = buf[:len(buf)-1]
				break
			}
			buf = buf[:len(buf)-1]
		}
	}
	return utf8.Valid(buf)
}
