package mock

import (
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/extension"
)

// Compile-time interface verification.
var (
	_ extension.Extension = (*Extension)(nil)
	_ extension.Extension = (*RichExtension)(nil)
	_ extension.Briefer   = (*RichExtension)(nil)
	_ extension.Detailer  = (*RichExtension)(nil)
	_ extension.Sectioner = (*RichExtension)(nil)
)

// Extension is a mock implementation of extension.Extension with only the
// mandatory operations.
type Extension struct {
	LevelFn   func() extension.Level
	ParseFn   func(path string) *doctree.Node
	ContentFn func(node *doctree.Node) extension.Document
	CloseFn   func() error
}

func (e *Extension) Level() extension.Level {
	return e.LevelFn()
}

func (e *Extension) Parse(path string) *doctree.Node {
	return e.ParseFn(path)
}

func (e *Extension) Content(node *doctree.Node) extension.Document {
	return e.ContentFn(node)
}

func (e *Extension) Close() error {
	if e.CloseFn == nil {
		return nil
	}
	return e.CloseFn()
}

// RichExtension also implements the optional text operations.
type RichExtension struct {
	Extension
	BriefFn   func(node *doctree.Node) string
	DetailsFn func(node *doctree.Node) string
	SectionFn func(node *doctree.Node, name string) string
}

func (e *RichExtension) Brief(node *doctree.Node) string {
	return e.BriefFn(node)
}

func (e *RichExtension) Details(node *doctree.Node) string {
	return e.DetailsFn(node)
}

func (e *RichExtension) Section(node *doctree.Node, name string) string {
	return e.SectionFn(node, name)
}

// Fixed returns an Extension at level that answers every Parse with the
// result of build and every Content with text.
func Fixed(level extension.Level, text string, build func(path string) *doctree.Node) *Extension {
	return &Extension{
		LevelFn: func() extension.Level { return level },
		ParseFn: build,
		ContentFn: func(*doctree.Node) extension.Document {
			return extension.Document{Text: text}
		},
	}
}
