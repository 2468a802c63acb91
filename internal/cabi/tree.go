package cabi

import (
	"unsafe"

	"github.com/dgallion1/docview/internal/extension"
)

// cNode mirrors the C node layout:
//
//	struct docview_extension_doc_tree_node {
//	    const struct docview_extension_doc_tree_node* parent;
//	    const char* title;
//	    const char* const* synonyms;   /* NULL-terminated */
//	    const struct docview_extension_doc_tree_node* const* children; /* NULL-terminated */
//	};
type cNode struct {
	parent   uintptr
	title    uintptr
	synonyms uintptr
	children uintptr
}

// maxArray bounds NULL-terminated array scans so a missing terminator
// cannot run away through memory.
const maxArray = 1 << 20

// pointer converts a C address into an unsafe.Pointer.
func pointer(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// goString copies a NUL-terminated C string.
func goString(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	p := pointer(addr)
	var n int
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// pointers reads a NULL-terminated array of pointers.
func pointers(addr uintptr) []uintptr {
	if addr == 0 {
		return nil
	}
	p := pointer(addr)
	var out []uintptr
	for i := 0; i < maxArray; i++ {
		v := *(*uintptr)(unsafe.Add(p, i*int(unsafe.Sizeof(uintptr(0)))))
		if v == 0 {
			break
		}
		out = append(out, v)
	}
	return out
}

// cString returns a NUL-terminated copy of s. Callers must keep the slice
// alive for as long as C code may read it.
func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// readTree copies the C tree at addr into RawNodes and returns, for every
// RawNode, the C address it was read from. Nodes reachable twice are read
// once.
func readTree(addr uintptr) (*extension.RawNode, map[*extension.RawNode]uintptr) {
	type pending struct {
		addr   uintptr
		parent *extension.RawNode
	}

	origin := make(map[*extension.RawNode]uintptr)
	seen := make(map[uintptr]bool)

	var root *extension.RawNode
	stack := []pending{{addr: addr}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[p.addr] {
			continue
		}
		seen[p.addr] = true

		c := (*cNode)(pointer(p.addr))
		node := &extension.RawNode{Parent: p.parent, Title: goString(c.title)}
		for _, s := range pointers(c.synonyms) {
			node.Synonyms = append(node.Synonyms, goString(s))
		}
		origin[node] = p.addr

		if p.parent == nil {
			root = node
		} else {
			p.parent.Children = append(p.parent.Children, node)
		}

		children := pointers(c.children)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, pending{addr: children[i], parent: node})
		}
	}
	return root, origin
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
