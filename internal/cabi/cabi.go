//go:build darwin || freebsd || linux

// Package cabi loads extensions written against the C function-table
// contract. A library exports
//
//	struct docview_extension_funcs {
//	    int (*applicability_level)(void);
//	    const docview_extension_doc_tree_node* (*get_docs_tree)(const char* path);
//	    docview_document (*get_doc)(const docview_extension_doc_tree_node*);
//	    const char* (*get_brief)(const docview_extension_doc_tree_node*);
//	    const char* (*get_details)(const docview_extension_doc_tree_node*);
//	    const char* (*get_section)(const docview_extension_doc_tree_node*, const char*);
//	} extension_functions;
//
// where docview_document is { const char* content_or_uri; bool is_uri; }.
// The library is opened without cgo and exposed as an extension.FuncTable
// under extension.TableSymbol.
package cabi

import (
	"fmt"
	"runtime"

	"github.com/dgallion1/docview/internal/extension"
	"github.com/ebitengine/purego"
)

// TableSymbol is the C symbol holding the function table.
const TableSymbol = "extension_functions"

// Opener opens C extension libraries. Libraries that do not export
// TableSymbol are closed again and rejected.
var Opener extension.Opener = extension.OpenerFunc(Open)

type cFuncs struct {
	applicabilityLevel uintptr
	getDocsTree        uintptr
	getDoc             uintptr
	getBrief           uintptr
	getDetails         uintptr
	getSection         uintptr
}

type library struct {
	path   string
	handle uintptr
	funcs  cFuncs
	origin map[*extension.RawNode]uintptr
}

// Open dlopens path and reads its function table.
func Open(path string) (extension.Module, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen: %w", err)
	}
	sym, err := purego.Dlsym(handle, TableSymbol)
	if err != nil || sym == 0 {
		purego.Dlclose(handle)
		return nil, fmt.Errorf("%s: %w", TableSymbol, extension.ErrNoSymbol)
	}
	return &library{
		path:   path,
		handle: handle,
		funcs:  *(*cFuncs)(pointer(sym)),
		origin: make(map[*extension.RawNode]uintptr),
	}, nil
}

func (l *library) Lookup(symbol string) (any, error) {
	if symbol != extension.TableSymbol || l.handle == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, extension.ErrNoSymbol)
	}
	return l.table(), nil
}

// table wraps each C entry point; absent entries stay nil so the Adapter
// can reject or default them.
func (l *library) table() *extension.FuncTable {
	f := l.funcs
	t := &extension.FuncTable{}

	if f.applicabilityLevel != 0 {
		t.Applicability = func() extension.Level {
			r1, _, _ := purego.SyscallN(f.applicabilityLevel)
			return extension.Level(int32(r1))
		}
	}
	if f.getDocsTree != 0 {
		t.Parse = func(path string) *extension.RawNode {
			cpath := cString(path)
			r1, _, _ := purego.SyscallN(f.getDocsTree, addrOf(cpath))
			runtime.KeepAlive(cpath)
			if r1 == 0 {
				return nil
			}
			root, origin := readTree(r1)
			for n, addr := range origin {
				l.origin[n] = addr
			}
			return root
		}
		t.Release = func(n *extension.RawNode) {
			delete(l.origin, n)
		}
	}
	if f.getDoc != 0 {
		t.Content = func(n *extension.RawNode) extension.Document {
			addr, ok := l.origin[n]
			if !ok {
				return extension.Document{}
			}
			// The returned struct fits in two registers.
			r1, r2, _ := purego.SyscallN(f.getDoc, addr)
			return extension.Document{Text: goString(r1), IsReference: byte(r2) != 0}
		}
	}
	if f.getBrief != 0 {
		t.Brief = l.text(f.getBrief)
	}
	if f.getDetails != 0 {
		t.Details = l.text(f.getDetails)
	}
	if f.getSection != 0 {
		t.Section = func(n *extension.RawNode, name string) string {
			addr, ok := l.origin[n]
			if !ok {
				return ""
			}
			cname := cString(name)
			r1, _, _ := purego.SyscallN(f.getSection, addr, addrOf(cname))
			runtime.KeepAlive(cname)
			return goString(r1)
		}
	}
	return t
}

func (l *library) text(fn uintptr) func(*extension.RawNode) string {
	return func(n *extension.RawNode) string {
		addr, ok := l.origin[n]
		if !ok {
			return ""
		}
		r1, _, _ := purego.SyscallN(fn, addr)
		return goString(r1)
	}
}

// Close unmaps the library. Trees it returned become unreadable.
func (l *library) Close() error {
	if l.handle == 0 {
		return nil
	}
	clear(l.origin)
	err := purego.Dlclose(l.handle)
	l.handle = 0
	if err != nil {
		return fmt.Errorf("dlclose %s: %w", l.path, err)
	}
	return nil
}
