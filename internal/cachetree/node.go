// Package cachetree records which source files earlier passes linked.
//
// The record is a forest mirroring the source directory hierarchy: each root
// is named after the absolute source directory it was built from, inner nodes
// are subdirectories and leaves are linked file names.
package cachetree

// Entry is one child of a Node: either a Leaf or a *Node.
// The interface is sealed; no other type can satisfy it.
type Entry interface {
	EntryName() string
	isEntry()
}

// Leaf is the name of a linked file
type Leaf string

// EntryName returns the file name
func (l Leaf) EntryName() string { return string(l) }

func (Leaf) isEntry() {}

// Node is one directory level of the cache tree
type Node struct {
	// Name is an absolute path for roots and a single segment otherwise
	Name string

	// Children are leaves and subdirectories in insertion order
	Children []Entry
}

// NewNode creates an empty node
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// EntryName returns the directory name
func (n *Node) EntryName() string { return n.Name }

func (*Node) isEntry() {}

// AddLeaf appends a file leaf without any uniqueness check
func (n *Node) AddLeaf(name string) {
	n.Children = append(n.Children, Leaf(name))
}

// AddDir appends a subdirectory node and returns it
func (n *Node) AddDir(name string) *Node {
	child := NewNode(name)
	n.Children = append(n.Children, child)
	return child
}

// hasLeaf reports whether a leaf named name is among the children
func (n *Node) hasLeaf(name string) bool {
	for _, child := range n.Children {
		if leaf, ok := child.(Leaf); ok && string(leaf) == name {
			return true
		}
	}
	return false
}

// findDir returns the subdirectory named name, or nil if there is none.
// More than one match is reported instead of silently picking the first.
func (n *Node) findDir(location, name string) (*Node, error) {
	var found *Node
	count := 0
	for _, child := range n.Children {
		if dir, ok := child.(*Node); ok && dir.Name == name {
			if found == nil {
				found = dir
			}
			count++
		}
	}
	if count > 1 {
		return nil, &AmbiguousDirectoryError{Parent: location, Name: name, Count: count}
	}
	return found, nil
}

// Forest is the whole cache: one root per synchronized source directory
type Forest struct {
	Roots []*Node
}

// NewForest creates an empty forest
func NewForest() *Forest {
	return &Forest{}
}

// findRoot returns the root named name, or nil if there is none
func (f *Forest) findRoot(name string) (*Node, error) {
	var found *Node
	count := 0
	for _, root := range f.Roots {
		if root.Name == name {
			if found == nil {
				found = root
			}
			count++
		}
	}
	if count > 1 {
		return nil, &AmbiguousDirectoryError{Parent: "", Name: name, Count: count}
	}
	return found, nil
}

// LeafCount returns the number of file leaves in the forest
func (f *Forest) LeafCount() int {
	total := 0
	for _, root := range f.Roots {
		total += countLeaves(root)
	}
	return total
}

func countLeaves(n *Node) int {
	total := 0
	for _, child := range n.Children {
		switch c := child.(type) {
		case Leaf:
			total++
		case *Node:
			total += countLeaves(c)
		}
	}
	return total
}
