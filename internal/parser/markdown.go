package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithParserOptions(gmparser.WithAutoHeadingID()))
	doc := md.Parser().Parse(text.NewReader(src))

	o := newOutline(filename)
	// Blocks that make up each section, rendered on demand.
	blocks := make(map[*doctree.Node][]ast.Node)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			anchor := slug(title)
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok && len(b) > 0 {
					anchor = string(b)
				}
			}
			o.heading(node.Level, title, anchor)

		default:
			o.paragraph(extractText(n, src))
			cur := o.current()
			blocks[cur] = append(blocks[cur], n)
		}
	}

	result := o.finish()
	for node, nodes := range blocks {
		sec := result.Sections[node]
		sec.Render = renderBlocks(md, src, nodes)
	}
	return result, nil
}

func renderBlocks(md goldmark.Markdown, src []byte, nodes []ast.Node) func() string {
	return func() string {
		var buf bytes.Buffer
		for _, n := range nodes {
			if err := md.Renderer().Render(&buf, src, n); err != nil {
				break
			}
		}
		return buf.String()
	}
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeText(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeText(buf *bytes.Buffer, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return
	case *ast.Text:
		buf.Write(node.Value(src))
		if node.HardLineBreak() || node.SoftLineBreak() {
			buf.WriteByte('\n')
		}
		return
	case *ast.String:
		buf.Write(node.Value)
		return
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeText(buf, c, src)
	}
	// Keep nested blocks such as list items on their own lines.
	if n.Type() == ast.TypeBlock && n.NextSibling() != nil {
		buf.WriteByte('\n')
	}
}
