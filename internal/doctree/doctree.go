package doctree

// Node is one addressable unit of documentation. Nodes are owned by the
// extension that built them; holders of a *Node never own it.
type Node struct {
	Parent   *Node    // Owning section, nil for roots
	Title    string   // Display and search string
	Synonyms []string // Alternate search strings
	Children []*Node  // Subsections, empty for leaves
}

// New returns a detached node.
func New(title string, synonyms ...string) *Node {
	return &Node{Title: title, Synonyms: synonyms}
}

// AddChild appends child and points its Parent at n.
func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Root follows Parent links to the top of the tree.
func (n *Node) Root() *Node {
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	return root
}

// Path returns the titles from the root down to n, e.g.
// ["Guide", "Install", "Linux"].
func (n *Node) Path() []string {
	var depth int
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	path := make([]string, depth)
	for p := n; p != nil; p = p.Parent {
		depth--
		path[depth] = p.Title
	}
	return path
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the descendants of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		// Push in reverse so the first child is visited first.
		for i := len(cur.Children) - 1; i >= 0; i-- {
			if cur.Children[i] != nil {
				stack = append(stack, cur.Children[i])
			}
		}
	}
}

// WalkPostOrder visits the descendants of n before n itself.
func (n *Node) WalkPostOrder(fn func(*Node)) {
	type frame struct {
		node     *Node
		expanded bool
	}
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.expanded {
			stack = stack[:len(stack)-1]
			fn(top.node)
			continue
		}
		top.expanded = true
		cur := top.node
		for i := len(cur.Children) - 1; i >= 0; i-- {
			if cur.Children[i] != nil {
				stack = append(stack, frame{node: cur.Children[i]})
			}
		}
	}
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	var count int
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
