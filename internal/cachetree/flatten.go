package cachetree

import (
	"path/filepath"
	"sort"
)

// MembershipSet is the flat set of absolute paths recorded in a forest
type MembershipSet map[string]struct{}

// Contains reports whether path was linked by an earlier pass
func (s MembershipSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of paths in the set
func (s MembershipSet) Len() int {
	return len(s)
}

// Sorted returns the paths in lexical order
func (s MembershipSet) Sorted() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Flatten returns every root-to-leaf path of the forest. Each path is the
// root name joined with the directory names and the leaf name.
func (f *Forest) Flatten() MembershipSet {
	set := make(MembershipSet)
	for _, root := range f.Roots {
		flattenNode(root, root.Name, set)
	}
	return set
}

func flattenNode(n *Node, parent string, set MembershipSet) {
	for _, child := range n.Children {
		switch c := child.(type) {
		case Leaf:
			set[filepath.Join(parent, string(c))] = struct{}{}
		case *Node:
			flattenNode(c, filepath.Join(parent, c.Name), set)
		}
	}
}
