package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Each paragraph becomes a node
// titled with its first line.
type TextParser struct{}

const titleWidth = 60

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	o := newOutline(filename)
	for _, para := range paragraphs {
		o.leaf(firstLine(para, titleWidth), &Section{Text: para})
	}
	o.section(o.doc.Root).Text = strings.Join(paragraphs, "\n\n")

	return o.finish(), nil
}
