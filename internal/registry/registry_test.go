package registry_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/extension"
	"github.com/dgallion1/docview/internal/mock"
	"github.com/dgallion1/docview/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture lays out module files in a temp dir and serves them through a
// mock opener keyed by canonical path.
type fixture struct {
	t      *testing.T
	dir    string
	opener *mock.Opener
	reg    *registry.Registry
}

func newFixture(t *testing.T, opts ...registry.Option) *fixture {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	f := &fixture{t: t, dir: dir, opener: &mock.Opener{Modules: map[string]*mock.Module{}}}
	f.reg = registry.New(append([]registry.Option{registry.WithOpener(f.opener)}, opts...)...)
	return f
}

// file writes an empty file and returns its path.
func (f *fixture) file(name string) string {
	f.t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(f.t, os.WriteFile(path, []byte("module"), 0o644))
	return path
}

// module writes a module file that opens to mod.
func (f *fixture) module(name string, mod *mock.Module) string {
	path := f.file(name)
	f.opener.Modules[path] = mod
	return path
}

// native writes a module exporting ext and loads it.
func (f *fixture) native(name string, ext extension.Extension) string {
	f.t.Helper()
	path := f.module(name, mock.NativeModule(ext))
	require.NoError(f.t, f.reg.Load(path))
	return path
}

// treeR builds R -> [C1 -> [G1], C2].
func treeR(prefix string) *doctree.Node {
	r := doctree.New(prefix + "R")
	c1 := r.AddChild(doctree.New(prefix + "C1"))
	r.AddChild(doctree.New(prefix + "C2"))
	c1.AddChild(doctree.New(prefix + "G1"))
	return r
}

// always returns an extension at level that builds a fresh tree for every
// path and answers Content with text.
func always(level extension.Level, text string) *mock.Extension {
	return mock.Fixed(level, text, func(string) *doctree.Node { return treeR(text + ":") })
}

func never(level extension.Level) *mock.Extension {
	return mock.Fixed(level, "never", func(string) *doctree.Node { return nil })
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("then IsLoaded and idempotent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := f.module("a.so", mock.NativeModule(always(extension.Tiny, "a")))

		require.NoError(t, f.reg.Load(path))
		assert.True(t, f.reg.IsLoaded(path))

		require.NoError(t, f.reg.Load(path))
		assert.Len(t, f.reg.Extensions(), 1)
		assert.Equal(t, []string{path}, f.opener.Opened, "second load must not reopen")
	})

	t.Run("missing path is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.reg.Load(filepath.Join(f.dir, "missing.so"))
		require.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("directory is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.reg.Load(f.dir)
		require.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("dangling symlink is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		link := filepath.Join(f.dir, "link.so")
		require.NoError(t, os.Symlink(filepath.Join(f.dir, "gone.so"), link))

		err := f.reg.Load(link)
		require.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("unopenable module is InvalidExtension", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := f.file("garbage.so")

		err := f.reg.Load(path)
		require.ErrorIs(t, err, registry.ErrInvalidExtension)
		assert.False(t, f.reg.IsLoaded(path))
	})

	t.Run("module without symbols is InvalidExtension", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := f.module("empty.so", &mock.Module{})

		err := f.reg.Load(path)
		require.ErrorIs(t, err, registry.ErrInvalidExtension)
		assert.False(t, f.reg.IsLoaded(path))
	})

	t.Run("incomplete function table is InvalidExtension", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := f.module("c.so", mock.TableModule(&extension.FuncTable{
			Applicability: func() extension.Level { return extension.Tiny },
			Parse:         func(string) *extension.RawNode { return nil },
		}))

		err := f.reg.Load(path)
		require.ErrorIs(t, err, registry.ErrInvalidExtension)
		require.ErrorIs(t, err, extension.ErrIncompleteTable)
	})

	t.Run("applicability outside Tiny..Huge is InvalidExtension", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		mod := mock.NativeModule(always(extension.Level(7), "a"))
		path := f.module("seven.so", mod)

		err := f.reg.Load(path)
		require.ErrorIs(t, err, registry.ErrInvalidExtension)
		assert.Contains(t, err.Error(), "level(7)")
		assert.False(t, f.reg.IsLoaded(path))
		assert.True(t, mod.Closed, "rejected module must be closed")

		err = f.reg.LoadBuiltin("seven", always(extension.Level(-1), "b"))
		require.ErrorIs(t, err, registry.ErrInvalidExtension)
		assert.Empty(t, f.reg.Extensions())
	})

	t.Run("function table is adapted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := f.module("c.so", mock.TableModule(&extension.FuncTable{
			Applicability: func() extension.Level { return extension.Small },
			Parse: func(string) *extension.RawNode {
				return &extension.RawNode{Title: "from C"}
			},
			Content: func(n *extension.RawNode) extension.Document {
				return extension.Document{Text: "c:" + n.Title}
			},
		}))

		require.NoError(t, f.reg.Load(path))
		infos := f.reg.Extensions()
		require.Len(t, infos, 1)
		assert.Equal(t, extension.KindAdapted, infos[0].Kind)
		assert.Equal(t, extension.Small, infos[0].Level)

		root, err := f.reg.ParseTree(f.file("doc.txt"))
		require.NoError(t, err)
		require.NotNil(t, root)
		doc, err := f.reg.Content(root)
		require.NoError(t, err)
		assert.Equal(t, "c:from C", doc.Text)
	})
}

func TestLoad_SymlinkRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	target := f.module("real.so", mock.NativeModule(always(extension.Tiny, "x")))
	link := filepath.Join(f.dir, "link.so")
	require.NoError(t, os.Symlink(target, link))

	require.NoError(t, f.reg.Load(link))
	assert.True(t, f.reg.IsLoaded(link))
	assert.True(t, f.reg.IsLoaded(target))

	require.NoError(t, f.reg.Load(target), "loading the target again is a no-op")
	assert.Len(t, f.reg.Extensions(), 1)
	assert.Equal(t, target, f.reg.Extensions()[0].Path)

	// The alias survives removal of the link itself.
	require.NoError(t, os.Remove(link))
	assert.True(t, f.reg.IsLoaded(link))

	f.reg.Unload(link)
	assert.False(t, f.reg.IsLoaded(target))
	assert.False(t, f.reg.IsLoaded(link))
}

func TestUnload(t *testing.T) {
	t.Parallel()

	t.Run("never loaded is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.NotPanics(t, func() {
			f.reg.Unload(filepath.Join(f.dir, "never.so"))
			f.reg.Unload("")
		})
	})

	t.Run("invalidates only that extension's trees", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		mod := mock.NativeModule(always(extension.Tiny, "e"))
		pathE := f.module("e.so", mod)
		require.NoError(t, f.reg.Load(pathE))

		rootE, err := f.reg.ParseTree(f.file("one.md"))
		require.NoError(t, err)
		require.NotNil(t, rootE)

		// Load F afterwards at the same level; E still wins by load order,
		// so unload E first to let F claim the next path.
		pathF := f.native("f.so", always(extension.Tiny, "f"))
		f.reg.Unload(pathE)
		assert.True(t, mod.Closed)
		assert.False(t, f.reg.IsLoaded(pathE))

		rootF, err := f.reg.ParseTree(f.file("two.md"))
		require.NoError(t, err)
		require.NotNil(t, rootF)

		rootE.Walk(func(n *doctree.Node) bool {
			assert.False(t, f.reg.Validate(n), "node %q of unloaded extension", n.Title)
			return true
		})
		rootF.Walk(func(n *doctree.Node) bool {
			assert.True(t, f.reg.Validate(n), "node %q of loaded extension", n.Title)
			return true
		})
		assert.True(t, f.reg.IsLoaded(pathF))

		_, err = f.reg.Content(rootE.Children[0])
		require.ErrorIs(t, err, registry.ErrInvalidNode)
	})

	t.Run("keeps trees of other extensions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		pathE := f.native("e.so", mock.Fixed(extension.Tiny, "e", func(p string) *doctree.Node {
			if filepath.Ext(p) == ".e" {
				return treeR("e:")
			}
			return nil
		}))
		f.native("f.so", always(extension.Huge, "f"))

		rootE, err := f.reg.ParseTree(f.file("doc.e"))
		require.NoError(t, err)
		rootF, err := f.reg.ParseTree(f.file("doc.f"))
		require.NoError(t, err)
		require.Len(t, f.reg.Roots(), 2)

		f.reg.Unload(pathE)

		assert.False(t, f.reg.Validate(rootE.Children[0].Children[0]))
		assert.True(t, f.reg.Validate(rootF.Children[0].Children[0]))
		assert.Equal(t, []*doctree.Node{rootF}, f.reg.Roots())
	})
}

func TestParseTree_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("narrower level wins regardless of load order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.native("huge.so", always(extension.Huge, "huge"))
		f.native("tiny.so", always(extension.Tiny, "tiny"))

		root, err := f.reg.ParseTree(f.file("doc"))
		require.NoError(t, err)
		require.NotNil(t, root)
		assert.Equal(t, "tiny:R", root.Title)
	})

	t.Run("load order breaks ties within a level", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.native("first.so", always(extension.Medium, "first"))
		f.native("second.so", always(extension.Medium, "second"))

		root, err := f.reg.ParseTree(f.file("doc"))
		require.NoError(t, err)
		assert.Equal(t, "first:R", root.Title)
	})

	t.Run("declining extensions are skipped and dispatch stops at the winner", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var calls []string
		record := func(name string, level extension.Level, result func() *doctree.Node) *mock.Extension {
			return mock.Fixed(level, name, func(string) *doctree.Node {
				calls = append(calls, name)
				return result()
			})
		}
		f.native("a.so", record("a", extension.Tiny, func() *doctree.Node { return nil }))
		f.native("b.so", record("b", extension.Big, func() *doctree.Node { return treeR("b:") }))
		f.native("c.so", record("c", extension.Small, func() *doctree.Node { return nil }))
		f.native("d.so", record("d", extension.Huge, func() *doctree.Node { return treeR("d:") }))

		root, err := f.reg.ParseTree(f.file("doc"))
		require.NoError(t, err)
		assert.Equal(t, "b:R", root.Title)
		assert.Equal(t, []string{"a", "c", "b"}, calls)
	})

	t.Run("no willing extension is not an error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.native("a.so", never(extension.Tiny))
		f.native("b.so", never(extension.Huge))

		root, err := f.reg.ParseTree(f.file("doc"))
		require.NoError(t, err)
		assert.Nil(t, root)
		assert.Empty(t, f.reg.Roots())
	})

	t.Run("missing path is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.native("a.so", always(extension.Tiny, "a"))

		_, err := f.reg.ParseTree(filepath.Join(f.dir, "nope"))
		require.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("directories are parseable", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.native("a.so", always(extension.Tiny, "a"))

		root, err := f.reg.ParseTree(f.dir)
		require.NoError(t, err)
		assert.NotNil(t, root)
	})

	t.Run("extensions receive the resolved path", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got string
		f.native("a.so", mock.Fixed(extension.Tiny, "a", func(p string) *doctree.Node {
			got = p
			return nil
		}))
		target := f.file("doc.md")
		link := filepath.Join(f.dir, "alias.md")
		require.NoError(t, os.Symlink(target, link))

		_, err := f.reg.ParseTree(link)
		require.NoError(t, err)
		assert.Equal(t, target, got)
	})

	t.Run("builtins take part in dispatch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.native("huge.so", always(extension.Huge, "mod"))
		require.NoError(t, f.reg.LoadBuiltin("small", always(extension.Small, "builtin")))
		require.NoError(t, f.reg.LoadBuiltin("small", always(extension.Tiny, "dup")))

		root, err := f.reg.ParseTree(f.file("doc"))
		require.NoError(t, err)
		assert.Equal(t, "builtin:R", root.Title)
		assert.True(t, f.reg.IsLoaded("builtin:small"))
		assert.Len(t, f.reg.Extensions(), 2)
		assert.True(t, f.reg.Extensions()[1].Builtin())

		f.reg.Unload("builtin:small")
		assert.False(t, f.reg.Validate(root))
	})
}

func TestQueries_DelegateToOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	e := &mock.RichExtension{
		Extension: *mock.Fixed(extension.Tiny, "E-content", func(p string) *doctree.Node {
			if filepath.Ext(p) == ".e" {
				return treeR("e:")
			}
			return nil
		}),
		BriefFn:   func(n *doctree.Node) string { return "E-brief " + n.Title },
		DetailsFn: func(n *doctree.Node) string { return "E-details " + n.Title },
		SectionFn: func(n *doctree.Node, name string) string { return "E-section " + name },
	}
	f.native("e.so", e)
	f.native("f.so", mock.Fixed(extension.Huge, "F-content", func(string) *doctree.Node {
		return treeR("f:")
	}))

	rootE, err := f.reg.ParseTree(f.file("doc.e"))
	require.NoError(t, err)
	rootF, err := f.reg.ParseTree(f.file("doc.f"))
	require.NoError(t, err)

	nodeE := rootE.Children[0].Children[0]
	nodeF := rootF.Children[1]

	docE, err := f.reg.Content(nodeE)
	require.NoError(t, err)
	assert.Equal(t, "E-content", docE.Text)
	docF, err := f.reg.Content(nodeF)
	require.NoError(t, err)
	assert.Equal(t, "F-content", docF.Text)

	brief, err := f.reg.Brief(nodeE)
	require.NoError(t, err)
	assert.Equal(t, "E-brief e:G1", brief)
	details, err := f.reg.Details(nodeE)
	require.NoError(t, err)
	assert.Equal(t, "E-details e:G1", details)
	section, err := f.reg.Section(nodeE, "Usage")
	require.NoError(t, err)
	assert.Equal(t, "E-section Usage", section)

	// F implements none of the optional operations.
	brief, err = f.reg.Brief(nodeF)
	require.NoError(t, err)
	assert.Equal(t, "", brief)
	details, err = f.reg.Details(nodeF)
	require.NoError(t, err)
	assert.Equal(t, "", details)
	section, err = f.reg.Section(nodeF, "Usage")
	require.NoError(t, err)
	assert.Equal(t, "", section)
}

func TestQueries_ForeignNodeIsInvalid(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.native("a.so", always(extension.Tiny, "a"))
	_, err := f.reg.ParseTree(f.file("doc"))
	require.NoError(t, err)

	foreign := treeR("foreign:").Children[0]
	for _, node := range []*doctree.Node{foreign, nil} {
		_, err = f.reg.Content(node)
		require.ErrorIs(t, err, registry.ErrInvalidNode)
		_, err = f.reg.Brief(node)
		require.ErrorIs(t, err, registry.ErrInvalidNode)
		_, err = f.reg.Details(node)
		require.ErrorIs(t, err, registry.ErrInvalidNode)
		_, err = f.reg.Section(node, "x")
		require.ErrorIs(t, err, registry.ErrInvalidNode)
		require.ErrorIs(t, f.reg.Invalidate(node), registry.ErrInvalidNode)
		assert.False(t, f.reg.Validate(node))
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.native("a.so", mock.Fixed(extension.Tiny, "a", func(p string) *doctree.Node {
		root := doctree.New("index")
		root.AddChild(doctree.New("abc"))
		root.AddChild(doctree.New("abcabc"))
		root.AddChild(doctree.New("abcdef"))
		root.AddChild(doctree.New("other", "abcxyz"))
		root.AddChild(doctree.New("acb"))
		return root
	}))
	f.native("b.so", always(extension.Huge, "b"))

	_, err := f.reg.ParseTree(f.file("doc.a"))
	require.NoError(t, err)

	var titles []string
	for _, n := range f.reg.Search("abc") {
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{"abc", "abcabc", "abcdef", "other"}, titles)
	assert.Len(t, f.reg.Search(""), 6)
}

func TestSearch_RoundTripParentChain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.native("a.so", always(extension.Tiny, "a"))
	root, err := f.reg.ParseTree(f.file("doc"))
	require.NoError(t, err)

	got := f.reg.Search("a:G1")
	require.Len(t, got, 1)
	g1 := got[0]
	require.NotNil(t, g1.Parent)
	require.NotNil(t, g1.Parent.Parent)
	assert.Equal(t, "a:C1", g1.Parent.Title)
	assert.Same(t, root, g1.Parent.Parent)
	assert.True(t, f.reg.Validate(g1))
}

func TestInvalidate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	table := &extension.FuncTable{
		Applicability: func() extension.Level { return extension.Tiny },
		Parse: func(string) *extension.RawNode {
			root := &extension.RawNode{Title: "root"}
			root.Children = []*extension.RawNode{{Parent: root, Title: "leaf"}}
			return root
		},
		Content: func(*extension.RawNode) extension.Document { return extension.Document{Text: "x"} },
	}
	path := f.module("c.so", mock.TableModule(table))
	require.NoError(t, f.reg.Load(path))

	first, err := f.reg.ParseTree(f.file("doc"))
	require.NoError(t, err)
	second, err := f.reg.ParseTree(f.file("doc"))
	require.NoError(t, err)

	leaf := first.Children[0]
	require.NoError(t, f.reg.Invalidate(leaf))

	assert.False(t, f.reg.Validate(leaf))
	assert.False(t, f.reg.Validate(first))
	assert.True(t, f.reg.Validate(second))
	assert.Equal(t, []*doctree.Node{second}, f.reg.Roots())
	assert.Equal(t, 1, f.reg.Extensions()[0].Trees)
	assert.Nil(t, leaf.Parent, "the adapter freed the invalidated tree")
}

func TestClose_UnloadsEverything(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	modA := mock.NativeModule(always(extension.Tiny, "a"))
	modB := mock.NativeModule(always(extension.Huge, "b"))
	require.NoError(t, f.reg.Load(f.module("a.so", modA)))
	require.NoError(t, f.reg.Load(f.module("b.so", modB)))
	_, err := f.reg.ParseTree(f.file("doc"))
	require.NoError(t, err)

	f.reg.Close()

	assert.True(t, modA.Closed)
	assert.True(t, modB.Closed)
	assert.Empty(t, f.reg.Extensions())
	assert.Empty(t, f.reg.Roots())
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t, registry.WithLogger(log))
	path := f.native("a.so", always(extension.Tiny, "a"))
	_, err := f.reg.ParseTree(f.file("doc"))
	require.NoError(t, err)
	f.reg.Unload(path)

	out := buf.String()
	assert.Contains(t, out, "extension loaded")
	assert.Contains(t, out, "kind=native")
	assert.Contains(t, out, "level=tiny")
	assert.Contains(t, out, "tree parsed")
	assert.Contains(t, out, "extension unloaded")
	assert.Contains(t, out, "trees_dropped=1")
}
