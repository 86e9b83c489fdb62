package object

import (
	"strings"
)

// PrefetchTreeNode is a node of a prefetch tree. The root has no name.
type PrefetchTreeNode struct {
	name     string
	phantom  bool
	parent   *PrefetchTreeNode
	children []*PrefetchTreeNode
}

// NewPrefetchTree returns an empty root.
func NewPrefetchTree(paths ...string) *PrefetchTreeNode {
	root := &PrefetchTreeNode{phantom: true}
	for _, p := range paths {
		root.AddPath(p)
	}
	return root
}

// Name returns the relationship name of the node.
func (n *PrefetchTreeNode) Name() string { return n.name }

// IsPhantom reports whether the node only exists to hold children. Phantom
// nodes are traversed but their relationship is not prefetched.
func (n *PrefetchTreeNode) IsPhantom() bool { return n.phantom }

// Parent returns the parent node, nil for the root.
func (n *PrefetchTreeNode) Parent() *PrefetchTreeNode { return n.parent }

// Children returns the child nodes in insertion order.
func (n *PrefetchTreeNode) Children() []*PrefetchTreeNode { return n.children }

// Child returns the named child, or nil.
func (n *PrefetchTreeNode) Child(name string) *PrefetchTreeNode {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// AddPath adds a dot-separated relationship path and returns its last
// node. Intermediate nodes created on the way are phantom.
func (n *PrefetchTreeNode) AddPath(path string) *PrefetchTreeNode {
	cur := n
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		child := cur.Child(seg)
		if child == nil {
			child = &PrefetchTreeNode{name: seg, phantom: true, parent: cur}
			cur.children = append(cur.children, child)
		}
		if i == len(segments)-1 {
			child.phantom = false
		}
		cur = child
	}
	return cur
}

// Node returns the node at path, or nil.
func (n *PrefetchTreeNode) Node(path string) *PrefetchTreeNode {
	cur := n
	for _, seg := range strings.Split(path, ".") {
		if cur = cur.Child(seg); cur == nil {
			return nil
		}
	}
	return cur
}

// Path returns the dot-separated path from the root.
func (n *PrefetchTreeNode) Path() string {
	var parts []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		parts = append([]string{cur.name}, parts...)
	}
	return strings.Join(parts, ".")
}

// NonPhantomPaths returns the paths of every non-phantom node, depth
// first.
func (n *PrefetchTreeNode) NonPhantomPaths() []string {
	var out []string
	var walk func(*PrefetchTreeNode)
	walk = func(cur *PrefetchTreeNode) {
		if !cur.phantom {
			out = append(out, cur.Path())
		}
		for _, c := range cur.children {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}
