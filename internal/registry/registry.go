// Package registry tracks loaded documentation extensions and the trees
// they produce, and routes queries on a node to the extension that owns it.
//
// A Registry is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
//
// Nodes handed out by a Registry are owned by extensions. Once an extension
// is unloaded, or a tree is invalidated, its nodes report false from
// Validate and must not be passed back in.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/extension"
	"github.com/dgallion1/docview/internal/search"
)

// BuiltinPrefix marks the pseudo paths of in-process extensions.
const BuiltinPrefix = "builtin:"

type rootRecord struct {
	root  *doctree.Node
	owner *extension.Handle
}

// Registry holds loaded extensions in load order and the root of every tree
// they have produced.
type Registry struct {
	opener extension.Opener
	log    *slog.Logger

	handles []*extension.Handle          // load order
	byPath  map[string]*extension.Handle // canonical path -> handle
	aliases map[string]string            // absolute path as given -> canonical path
	roots   []rootRecord
}

// Option configures a Registry.
type Option func(*Registry)

// WithOpener sets how modules are opened. The default is DefaultOpener.
func WithOpener(o extension.Opener) Option {
	return func(r *Registry) { r.opener = o }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		opener:  DefaultOpener,
		log:     slog.New(slog.DiscardHandler),
		byPath:  make(map[string]*extension.Handle),
		aliases: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// canonical resolves path to an absolute, symlink-free path and checks the
// target exists. Directories are accepted only when allowDir is set.
func canonical(path string, allowDir bool) (abs, resolved string, err error) {
	abs, err = filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w: %v", path, ErrNotFound, err)
	}
	resolved, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w: %v", path, ErrNotFound, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w: %v", path, ErrNotFound, err)
	}
	if !info.Mode().IsRegular() && !(allowDir && info.IsDir()) {
		return "", "", fmt.Errorf("%s: %w: not a regular file", path, ErrNotFound)
	}
	return abs, resolved, nil
}

// lookup finds the canonical key under which path was loaded, accepting the
// path exactly as loaded, its symlink target, or a builtin pseudo path.
func (r *Registry) lookup(path string) (string, bool) {
	if _, ok := r.byPath[path]; ok {
		return path, true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if key, ok := r.aliases[abs]; ok {
		return key, true
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	if _, ok := r.byPath[resolved]; ok {
		return resolved, true
	}
	return "", false
}

// Load opens the extension module at path. Loading a module that is already
// loaded, under any path that resolves to it, does nothing.
func (r *Registry) Load(path string) error {
	abs, resolved, err := canonical(path, false)
	if err != nil {
		return fmt.Errorf("load extension: %w", err)
	}
	if _, ok := r.byPath[resolved]; ok {
		r.aliases[abs] = resolved
		return nil
	}

	h, err := extension.Open(r.opener, resolved)
	if err != nil {
		r.log.Warn("extension rejected", "path", resolved, "error", err)
		return fmt.Errorf("load extension %s: %w: %w", path, ErrInvalidExtension, err)
	}
	if level := h.Extension.Level(); !level.Valid() {
		if err := h.Close(); err != nil {
			r.log.Warn("extension close failed", "path", resolved, "error", err)
		}
		r.log.Warn("extension rejected", "path", resolved, "level", level.String())
		return fmt.Errorf("load extension %s: %w: applicability %s is outside %s..%s",
			path, ErrInvalidExtension, level, extension.Tiny, extension.Huge)
	}

	r.add(h)
	r.aliases[abs] = resolved
	return nil
}

// LoadBuiltin registers an in-process extension under BuiltinPrefix+name.
// It takes part in dispatch exactly like a loaded module.
func (r *Registry) LoadBuiltin(name string, ext extension.Extension) error {
	if ext == nil {
		return fmt.Errorf("load builtin %s: %w: nil extension", name, ErrInvalidExtension)
	}
	key := BuiltinPrefix + name
	if _, ok := r.byPath[key]; ok {
		return nil
	}
	if level := ext.Level(); !level.Valid() {
		return fmt.Errorf("load builtin %s: %w: applicability %s is outside %s..%s",
			name, ErrInvalidExtension, level, extension.Tiny, extension.Huge)
	}
	r.add(extension.NewBuiltin(key, ext))
	return nil
}

func (r *Registry) add(h *extension.Handle) {
	r.handles = append(r.handles, h)
	r.byPath[h.Path] = h
	r.log.Info("extension loaded",
		"path", h.Path,
		"kind", h.Kind,
		"level", h.Extension.Level().String(),
	)
}

// Unload drops the extension loaded from path, forgets every tree it
// produced and releases its module. Unknown paths are ignored.
func (r *Registry) Unload(path string) {
	key, ok := r.lookup(path)
	if !ok {
		return
	}
	h := r.byPath[key]

	var dropped int
	r.roots = slices.DeleteFunc(r.roots, func(rec rootRecord) bool {
		if rec.owner == h {
			dropped++
			return true
		}
		return false
	})

	r.handles = slices.DeleteFunc(r.handles, func(other *extension.Handle) bool {
		return other == h
	})
	delete(r.byPath, key)
	for alias, target := range r.aliases {
		if target == key {
			delete(r.aliases, alias)
		}
	}

	if err := h.Close(); err != nil {
		r.log.Warn("extension close failed", "path", key, "error", err)
	}
	r.log.Info("extension unloaded", "path", key, "trees_dropped", dropped)
}

// IsLoaded reports whether path, or the file it resolves to, is loaded.
func (r *Registry) IsLoaded(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// ParseTree asks the loaded extensions, narrowest level first and in load
// order within a level, to parse path. The first tree returned is recorded
// and returned. A nil tree with a nil error means no extension claimed path.
func (r *Registry) ParseTree(path string) (*doctree.Node, error) {
	_, resolved, err := canonical(path, true)
	if err != nil {
		return nil, fmt.Errorf("parse tree: %w", err)
	}

	levels := make([]extension.Level, len(r.handles))
	for i, h := range r.handles {
		levels[i] = h.Extension.Level()
	}

	for _, level := range extension.Levels {
		for i, h := range r.handles {
			if levels[i] != level {
				continue
			}
			root := h.Extension.Parse(resolved)
			if root == nil {
				continue
			}
			if !r.registered(root) {
				r.roots = append(r.roots, rootRecord{root: root, owner: h})
			}
			r.log.Debug("tree parsed",
				"path", resolved,
				"extension", h.Path,
				"level", level.String(),
			)
			return root, nil
		}
	}

	r.log.Debug("no extension claimed path", "path", resolved)
	return nil, nil
}

func (r *Registry) registered(root *doctree.Node) bool {
	return slices.ContainsFunc(r.roots, func(rec rootRecord) bool {
		return rec.root == root
	})
}

// owner resolves the handle whose extension produced node's tree.
func (r *Registry) owner(node *doctree.Node) (*extension.Handle, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrInvalidNode)
	}
	root := node.Root()
	for _, rec := range r.roots {
		if rec.root == root {
			return rec.owner, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not part of a registered tree", ErrInvalidNode, node.Title)
}

// Content returns the renderable content of node from its extension.
func (r *Registry) Content(node *doctree.Node) (extension.Document, error) {
	h, err := r.owner(node)
	if err != nil {
		return extension.Document{}, err
	}
	return h.Extension.Content(node), nil
}

// Brief returns the brief of node, or "" if its extension has none.
func (r *Registry) Brief(node *doctree.Node) (string, error) {
	h, err := r.owner(node)
	if err != nil {
		return "", err
	}
	return extension.Brief(h.Extension, node), nil
}

// Details returns the details of node, or "" if its extension has none.
func (r *Registry) Details(node *doctree.Node) (string, error) {
	h, err := r.owner(node)
	if err != nil {
		return "", err
	}
	return extension.Details(h.Extension, node), nil
}

// Section returns the named section of node, or "" if its extension has none.
func (r *Registry) Section(node *doctree.Node, name string) (string, error) {
	h, err := r.owner(node)
	if err != nil {
		return "", err
	}
	return extension.Section(h.Extension, node, name), nil
}

// Search returns every node in every registered tree whose title or a
// synonym starts with query. The order is unspecified.
func (r *Registry) Search(query string) []*doctree.Node {
	return search.Search(query, r.Roots())
}

// Validate reports whether node belongs to a currently registered tree.
func (r *Registry) Validate(node *doctree.Node) bool {
	_, err := r.owner(node)
	return err == nil
}

// Invalidate forgets the tree containing node. The owning extension is
// asked to free it if it can. Its nodes then fail Validate.
func (r *Registry) Invalidate(node *doctree.Node) error {
	h, err := r.owner(node)
	if err != nil {
		return err
	}
	root := node.Root()
	r.roots = slices.DeleteFunc(r.roots, func(rec rootRecord) bool {
		return rec.root == root
	})
	if rel, ok := h.Extension.(extension.Releaser); ok {
		rel.Release(root)
	}
	r.log.Debug("tree invalidated", "extension", h.Path, "title", root.Title)
	return nil
}

// Roots returns the roots of every registered tree.
func (r *Registry) Roots() []*doctree.Node {
	roots := make([]*doctree.Node, len(r.roots))
	for i, rec := range r.roots {
		roots[i] = rec.root
	}
	return roots
}

// Info describes one loaded extension.
type Info struct {
	Path  string
	Kind  string
	Level extension.Level
	Trees int
}

// Builtin reports whether the entry is an in-process extension.
func (i Info) Builtin() bool {
	return strings.HasPrefix(i.Path, BuiltinPrefix)
}

// Extensions lists the loaded extensions in load order.
func (r *Registry) Extensions() []Info {
	infos := make([]Info, len(r.handles))
	for i, h := range r.handles {
		var trees int
		for _, rec := range r.roots {
			if rec.owner == h {
				trees++
			}
		}
		infos[i] = Info{Path: h.Path, Kind: h.Kind, Level: h.Extension.Level(), Trees: trees}
	}
	return infos
}

// Close unloads every extension, most recently loaded first.
func (r *Registry) Close() {
	for i := len(r.handles) - 1; i >= 0; i-- {
		r.Unload(r.handles[i].Path)
	}
}
