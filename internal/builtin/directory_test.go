package builtin

import (
	"path/filepath"
	"testing"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/extension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\n\ntext a\n")
	writeFile(t, dir, "sub/b.txt", "bee")
	writeFile(t, dir, "sub/deeper/d.txt", "too deep")
	writeFile(t, dir, ".hidden/c.md", "# C\n")
	writeFile(t, dir, "empty/blob.bin", "\x00\x01")
	return dir
}

func titles(nodes []*doctree.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Title)
	}
	return out
}

func TestDirectoryParse(t *testing.T) {
	dir := docsDir(t)
	d := NewDirectory(Options{MaxDepth: 1})
	assert.Equal(t, extension.Big, d.Level())

	root := d.Parse(dir)
	require.NotNil(t, root)
	assert.Equal(t, filepath.Base(dir), root.Title)
	require.Equal(t, []string{"a", "sub"}, titles(root.Children))

	a, sub := root.Children[0], root.Children[1]
	assert.Same(t, root, a.Parent)
	require.Equal(t, []string{"b"}, titles(sub.Children))
	b := sub.Children[0]

	t.Run("file nodes delegate", func(t *testing.T) {
		require.Len(t, a.Children, 1)
		assert.Equal(t, "text a", d.Details(a.Children[0]))
		assert.Equal(t, "bee", d.Brief(b))
		assert.Equal(t, extension.Document{Text: "<pre>bee</pre>"}, d.Content(b.Children[0]))
		assert.Equal(t, "text a", d.Section(a, "A"))
	})

	t.Run("directory nodes", func(t *testing.T) {
		assert.Equal(t, extension.Document{Text: "<ul><li>b</li></ul>"}, d.Content(sub))
		assert.Equal(t, filepath.Join(dir, "sub"), d.Details(sub))
		assert.Equal(t, "", d.Brief(sub))
		assert.Equal(t, "bee", d.Section(root, "b"))
	})

	t.Run("release", func(t *testing.T) {
		d.Release(root)
		assert.Empty(t, d.files)
		assert.Empty(t, d.owner)
		assert.Empty(t, d.dirs)
		for _, f := range d.formats {
			assert.Empty(t, f.docs, f.Name())
		}
		assert.Equal(t, extension.Document{}, d.Content(b))
	})
}

func TestDirectoryRejects(t *testing.T) {
	dir := t.TempDir()
	d := NewDirectory(Options{})

	assert.Nil(t, d.Parse(dir), "empty directory")

	writeFile(t, dir, "blob.bin", "\x00")
	assert.Nil(t, d.Parse(dir), "no documents")

	file := writeFile(t, dir, "a.txt", "x")
	assert.Nil(t, d.Parse(file), "regular file")
	assert.Nil(t, d.Parse(filepath.Join(dir, "missing")), "missing")
}

func TestDirectoryPrefersNarrowFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.md", "# Heading\n")

	d := NewDirectory(Options{})
	root := d.Parse(dir)
	require.NotNil(t, root)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "markdown", d.owner[root.Children[0]].Name())
}
