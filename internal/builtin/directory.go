package builtin

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/extension"
	"golang.org/x/net/html"
)

var (
	_ extension.Extension = (*Directory)(nil)
	_ extension.Briefer   = (*Directory)(nil)
	_ extension.Detailer  = (*Directory)(nil)
	_ extension.Sectioner = (*Directory)(nil)
	_ extension.Releaser  = (*Directory)(nil)
	_ io.Closer           = (*Directory)(nil)
)

// Directory turns a directory into a tree of its documents. Each file is
// parsed by the narrowest format that accepts it and grafted under a node
// for its directory. Queries on file nodes are delegated to that format.
//
// Directory owns private Format instances so its trees never collide with
// trees the standalone formats build for the same files.
type Directory struct {
	formats  []*Format // ascending level
	maxDepth int
	log      *slog.Logger

	files map[*doctree.Node][]fileTree // directory root -> grafted file roots
	owner map[*doctree.Node]*Format    // file node -> format that parsed it
	dirs  map[*doctree.Node]string     // directory node -> path on disk
}

type fileTree struct {
	root   *doctree.Node
	format *Format
}

// NewDirectory returns a Directory with its own set of format extensions.
func NewDirectory(opts Options) *Directory {
	opts = opts.withDefaults()
	return &Directory{
		formats:  Formats(opts),
		maxDepth: opts.MaxDepth,
		log:      opts.Logger.With("extension", "directory"),
		files:    make(map[*doctree.Node][]fileTree),
		owner:    make(map[*doctree.Node]*Format),
		dirs:     make(map[*doctree.Node]string),
	}
}

func (d *Directory) Level() extension.Level { return extension.Big }

// Parse walks path, skipping hidden entries and descending at most
// maxDepth levels. Directories without documents are left out; nil is
// returned when nothing under path parsed.
func (d *Directory) Parse(path string) *doctree.Node {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}

	type frame struct {
		path  string
		node  *doctree.Node
		depth int
	}

	root := doctree.New(filepath.Base(path))
	dirs := map[*doctree.Node]string{root: path}
	var files []fileTree

	stack := []frame{{path: path, node: root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(cur.path)
		if err != nil {
			d.log.Debug("read directory failed", "path", cur.path, "error", err)
			continue
		}

		var subdirs []frame
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			full := filepath.Join(cur.path, name)

			if entry.IsDir() {
				if cur.depth >= d.maxDepth {
					continue
				}
				child := cur.node.AddChild(doctree.New(name))
				dirs[child] = full
				subdirs = append(subdirs, frame{path: full, node: child, depth: cur.depth + 1})
				continue
			}

			if ft, ok := d.parseFile(full); ok {
				cur.node.AddChild(ft.root)
				files = append(files, ft)
			}
		}
		// Reverse so subdirectories are read in name order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	if len(files) == 0 {
		return nil
	}

	prune(root, dirs)
	for n, p := range dirs {
		d.dirs[n] = p
	}
	for _, ft := range files {
		ft.root.Walk(func(n *doctree.Node) bool {
			d.owner[n] = ft.format
			return true
		})
	}
	d.files[root] = files
	d.log.Debug("directory parsed", "path", path, "documents", len(files))
	return root
}

func (d *Directory) parseFile(path string) (fileTree, bool) {
	for _, f := range d.formats {
		if root := f.Parse(path); root != nil {
			return fileTree{root: root, format: f}, true
		}
	}
	return fileTree{}, false
}

// prune removes directory nodes that ended up with no documents beneath
// them. The root is kept.
func prune(root *doctree.Node, dirs map[*doctree.Node]string) {
	root.WalkPostOrder(func(n *doctree.Node) {
		if _, isDir := dirs[n]; !isDir || n == root || len(n.Children) > 0 {
			return
		}
		parent := n.Parent
		for i, c := range parent.Children {
			if c == n {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				break
			}
		}
		n.Parent = nil
		delete(dirs, n)
	})
}

// Content returns the delegated content of a file node, or a listing of a
// directory node's entries.
func (d *Directory) Content(node *doctree.Node) extension.Document {
	if f, ok := d.owner[node]; ok {
		return f.Content(node)
	}
	if _, ok := d.dirs[node]; !ok {
		return extension.Document{}
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, c := range node.Children {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(c.Title))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return extension.Document{Text: b.String()}
}

// Brief delegates to the file's format. Directories have none.
func (d *Directory) Brief(node *doctree.Node) string {
	if f, ok := d.owner[node]; ok {
		return f.Brief(node)
	}
	return ""
}

// Details delegates to the file's format. A directory's details are its
// path on disk.
func (d *Directory) Details(node *doctree.Node) string {
	if f, ok := d.owner[node]; ok {
		return f.Details(node)
	}
	return d.dirs[node]
}

// Section delegates to the file's format. On a directory node it looks
// for the nearest document titled name and returns its text.
func (d *Directory) Section(node *doctree.Node, name string) string {
	if f, ok := d.owner[node]; ok {
		return f.Section(node, name)
	}
	if _, ok := d.dirs[node]; !ok {
		return ""
	}
	if n := nearest(node, name); n != nil {
		if f, ok := d.owner[n]; ok {
			return f.Details(n)
		}
	}
	return ""
}

// Release frees a directory tree and every file tree grafted into it.
func (d *Directory) Release(root *doctree.Node) {
	files, ok := d.files[root]
	if !ok {
		return
	}
	delete(d.files, root)
	for _, ft := range files {
		ft.root.Walk(func(n *doctree.Node) bool {
			delete(d.owner, n)
			return true
		})
		ft.format.Release(ft.root)
	}
	root.Walk(func(n *doctree.Node) bool {
		delete(d.dirs, n)
		return true
	})
}

// Close releases every tree and closes the private formats.
func (d *Directory) Close() error {
	clear(d.files)
	clear(d.owner)
	clear(d.dirs)
	for _, f := range d.formats {
		f.Close()
	}
	return nil
}
