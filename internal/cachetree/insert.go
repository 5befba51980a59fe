package cachetree

import (
	"path/filepath"
	"strings"
)

// ResolvePath returns the absolute form of path with symlinks evaluated.
// For a path that does not exist (yet) the deepest existing ancestor is
// evaluated and the missing tail appended unchanged.
func ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	tail := ""
	for dir := abs; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, tail), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		tail = filepath.Join(filepath.Base(dir), tail)
	}
}

// IsWithin reports whether path equals dir or lies below it.
// Both must already be resolved.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Insert records fullPath, a file below sourceRoot, in the forest.
//
// The root node is named after the resolved sourceRoot and is created on
// first use. Directory nodes along the relative path are reused by name or
// created; the file name is appended as a leaf. Inserting the same file twice
// returns a *DuplicateLinkError and leaves the forest unchanged.
func (f *Forest) Insert(fullPath, sourceRoot string) error {
	segments, err := relativeSegments(fullPath, sourceRoot)
	if err != nil {
		return err
	}

	rootName, err := ResolvePath(sourceRoot)
	if err != nil {
		return err
	}
	root, err := f.findRoot(rootName)
	if err != nil {
		return err
	}
	if root == nil {
		root = NewNode(rootName)
		f.Roots = append(f.Roots, root)
	}

	return insertSegments(root, rootName, segments, fullPath)
}

// insertSegments walks down from n creating directories for all but the last
// segment, which becomes a leaf.
func insertSegments(n *Node, location string, segments []string, fullPath string) error {
	current := n
	for _, dir := range segments[:len(segments)-1] {
		next, err := current.findDir(location, dir)
		if err != nil {
			return err
		}
		if next == nil {
			next = current.AddDir(dir)
		}
		current = next
		location = filepath.Join(location, dir)
	}

	fileName := segments[len(segments)-1]
	if current.hasLeaf(fileName) {
		return &DuplicateLinkError{Path: fullPath}
	}
	current.AddLeaf(fileName)
	return nil
}

// relativeSegments splits fullPath relative to sourceRoot into its segments
func relativeSegments(fullPath, sourceRoot string) ([]string, error) {
	rel, err := filepath.Rel(sourceRoot, fullPath)
	if err != nil {
		return nil, &OutsideRootError{Path: fullPath, Root: sourceRoot}
	}
	if rel == "." {
		return nil, &EmptyPathError{Path: fullPath, Root: sourceRoot}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, &OutsideRootError{Path: fullPath, Root: sourceRoot}
	}
	return strings.Split(rel, string(filepath.Separator)), nil
}
