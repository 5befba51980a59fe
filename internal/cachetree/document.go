package cachetree

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Ning0612/linksync/internal/domain"
)

const (
	fieldName = "name"
	fieldSub  = "sub"
)

// Parse builds a forest from an untyped document such as the result of
// decoding the cache JSON into an any. The document must be an array of
// nodes, each an object with a string "name" and a "sub" array whose items
// are strings (leaves) or nested nodes.
func Parse(doc any) (*Forest, error) {
	items, ok := doc.([]any)
	if !ok {
		return nil, &InvalidFieldError{Node: "(document)", Field: "(root)", Got: typeName(doc)}
	}

	forest := NewForest()
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &InvalidFieldError{Node: fmt.Sprintf("#%d", i), Field: "(root)", Got: typeName(item)}
		}
		root, err := parseNode(obj, fmt.Sprintf("#%d", i))
		if err != nil {
			return nil, err
		}
		forest.Roots = append(forest.Roots, root)
	}
	return forest, nil
}

// parseNode converts one object; location names it in errors until its own
// name is known.
func parseNode(obj map[string]any, location string) (*Node, error) {
	rawName, ok := obj[fieldName]
	if !ok {
		return nil, &MissingFieldError{Node: location, Field: fieldName}
	}
	name, ok := rawName.(string)
	if !ok {
		return nil, &InvalidFieldError{Node: location, Field: fieldName, Got: typeName(rawName)}
	}
	location = joinLocation(location, name)

	rawSub, ok := obj[fieldSub]
	if !ok {
		return nil, &MissingFieldError{Node: location, Field: fieldSub}
	}
	sub, ok := rawSub.([]any)
	if !ok {
		return nil, &InvalidFieldError{Node: location, Field: fieldSub, Got: typeName(rawSub)}
	}

	node := NewNode(name)
	for i, item := range sub {
		switch v := item.(type) {
		case string:
			node.AddLeaf(v)
		case map[string]any:
			child, err := parseNode(v, fmt.Sprintf("%s/#%d", location, i))
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		default:
			return nil, &InvalidChildTypeError{Node: location, Index: i, Got: typeName(item)}
		}
	}
	return node, nil
}

// joinLocation swaps the trailing "#i" placeholder for the node's name
func joinLocation(location, name string) string {
	for i := len(location) - 1; i >= 0; i-- {
		if location[i] == '/' {
			return location[:i+1] + name
		}
	}
	return name
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Persist converts the forest back into the untyped document shape Parse
// accepts. Nodes become map[string]any so encoders emit "name" before "sub";
// children keep insertion order.
func (f *Forest) Persist() []any {
	doc := make([]any, 0, len(f.Roots))
	for _, root := range f.Roots {
		doc = append(doc, persistNode(root))
	}
	return doc
}

func persistNode(n *Node) map[string]any {
	sub := make([]any, 0, len(n.Children))
	for _, child := range n.Children {
		switch c := child.(type) {
		case Leaf:
			sub = append(sub, string(c))
		case *Node:
			sub = append(sub, persistNode(c))
		}
	}
	return map[string]any{
		fieldName: n.Name,
		fieldSub:  sub,
	}
}

// Encode writes the forest as indented JSON
func Encode(w io.Writer, f *Forest) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(f.Persist()); err != nil {
		return fmt.Errorf("encoding cache document: %w", err)
	}
	return nil
}

// Decode reads a JSON cache document and parses it
func Decode(r io.Reader) (*Forest, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheMalformed, err)
	}
	return Parse(doc)
}

// Validate checks the sibling uniqueness invariants that Insert relies on:
// no duplicate roots, no duplicate leaves and no duplicate subdirectories.
// Documents written by linksync always pass; hand-edited ones may not.
func (f *Forest) Validate() error {
	roots := make(map[string]int, len(f.Roots))
	for _, root := range f.Roots {
		roots[root.Name]++
		if roots[root.Name] > 1 {
			return &AmbiguousDirectoryError{Name: root.Name, Count: roots[root.Name]}
		}
		if err := validateNode(root, root.Name); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *Node, location string) error {
	leaves := make(map[string]bool)
	dirs := make(map[string]int)
	for _, child := range n.Children {
		switch c := child.(type) {
		case Leaf:
			name := string(c)
			if leaves[name] {
				return &DuplicateLinkError{Path: location + "/" + name}
			}
			leaves[name] = true
		case *Node:
			dirs[c.Name]++
			if dirs[c.Name] > 1 {
				return &AmbiguousDirectoryError{Parent: location, Name: c.Name, Count: dirs[c.Name]}
			}
			if err := validateNode(c, location+"/"+c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
