package cachetree

import (
	"fmt"

	"github.com/Ning0612/linksync/internal/domain"
)

// MissingFieldError reports a cache node without "name" or "sub"
type MissingFieldError struct {
	Node  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%v: node %s: missing field %q", domain.ErrCacheMalformed, e.Node, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return domain.ErrCacheMalformed }

// InvalidFieldError reports a field holding a value of the wrong type
type InvalidFieldError struct {
	Node  string
	Field string
	Got   string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%v: node %s: field %q has type %s", domain.ErrCacheMalformed, e.Node, e.Field, e.Got)
}

func (e *InvalidFieldError) Unwrap() error { return domain.ErrCacheMalformed }

// InvalidChildTypeError reports a "sub" entry that is neither a string nor a node
type InvalidChildTypeError struct {
	Node  string
	Index int
	Got   string
}

func (e *InvalidChildTypeError) Error() string {
	return fmt.Sprintf("%v: node %s: sub[%d] has type %s, want string or node",
		domain.ErrCacheMalformed, e.Node, e.Index, e.Got)
}

func (e *InvalidChildTypeError) Unwrap() error { return domain.ErrCacheMalformed }

// DuplicateLinkError reports a source file inserted twice
type DuplicateLinkError struct {
	Path string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("%v: %s", domain.ErrDuplicateLink, e.Path)
}

func (e *DuplicateLinkError) Unwrap() error { return domain.ErrDuplicateLink }

// EmptyPathError reports an insertion of the source root itself
type EmptyPathError struct {
	Path string
	Root string
}

func (e *EmptyPathError) Error() string {
	return fmt.Sprintf("%v: %s has no segments below %s", domain.ErrEmptyPath, e.Path, e.Root)
}

func (e *EmptyPathError) Unwrap() error { return domain.ErrEmptyPath }

// OutsideRootError reports an insertion of a path not under its source root
type OutsideRootError struct {
	Path string
	Root string
}

func (e *OutsideRootError) Error() string {
	return fmt.Sprintf("%v: %s is not under %s", domain.ErrOutsideRoot, e.Path, e.Root)
}

func (e *OutsideRootError) Unwrap() error { return domain.ErrOutsideRoot }

// AmbiguousDirectoryError reports sibling directory nodes sharing a name
type AmbiguousDirectoryError struct {
	Parent string
	Name   string
	Count  int
}

func (e *AmbiguousDirectoryError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("%v: %d roots named %s", domain.ErrAmbiguousDirectory, e.Count, e.Name)
	}
	return fmt.Sprintf("%v: %d directories named %q under %s",
		domain.ErrAmbiguousDirectory, e.Count, e.Name, e.Parent)
}

func (e *AmbiguousDirectoryError) Unwrap() error { return domain.ErrAmbiguousDirectory }
