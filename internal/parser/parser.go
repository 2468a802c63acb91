package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
)

// Section is the text behind one node of a parsed document.
type Section struct {
	Text   string        // Plain text content (may be empty for container nodes)
	Page   int           // Source page (0 if N/A)
	Anchor string        // Fragment locating the node inside the source file
	Render func() string // Lazily renders Text as HTML; nil means escape Text
}

// Document is a parsed file: its node tree and the section behind each node.
type Document struct {
	Root     *doctree.Node
	Sections map[*doctree.Node]*Section
	// Linked means the source file itself is viewable, so the root and
	// anchored nodes are served as references into it.
	Linked bool
}

// Section returns the section behind n, or an empty one.
func (d *Document) Section(n *doctree.Node) *Section {
	if s, ok := d.Sections[n]; ok {
		return s
	}
	return &Section{}
}

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// Kinds of document, one per parser.
const (
	KindText     = "text"
	KindMarkdown = "markdown"
	KindCSV      = "csv"
	KindHTML     = "html"
	KindPDF      = "pdf"
	KindDOCX     = "docx"
)

// SupportedExtensions maps file extensions with a dedicated parser to the
// kind of document they hold.
var SupportedExtensions = map[string]string{
	".txt":      KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".csv":      KindCSV,
	".html":     KindHTML,
	".htm":      KindHTML,
	".pdf":      KindPDF,
	".docx":     KindDOCX,
}

// Options configures the parsers returned by ForKind.
type Options struct {
	PDFFallbackPdftotext bool
}

// KindOf returns the kind of document filename holds, judged by its
// extension, or "" when no parser reads it.
func KindOf(filename string) string {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ForKind returns the parser for a kind of document.
func ForKind(kind string, opts Options) (Parser, error) {
	switch kind {
	case KindText:
		return &TextParser{}, nil
	case KindMarkdown:
		return &MarkdownParser{}, nil
	case KindCSV:
		return &CSVParser{}, nil
	case KindHTML:
		return &HTMLParser{}, nil
	case KindPDF:
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case KindDOCX:
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported document kind: %q", kind)
	}
}

// titleFor strips the extension from a file name.
func titleFor(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
