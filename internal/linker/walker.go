// Package linker mirrors source directory trees into destination trees made
// of symbolic links.
package linker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/Ning0612/linksync/internal/cachetree"
	"github.com/Ning0612/linksync/internal/domain"
	"github.com/Ning0612/linksync/internal/logger"
	"github.com/Ning0612/linksync/internal/progress"
)

// NotFoundError reports a missing source directory
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, domain.ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return domain.ErrNotFound }

// NotADirectoryError reports a source path that is not a directory
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, domain.ErrNotDirectory)
}

func (e *NotADirectoryError) Unwrap() error { return domain.ErrNotDirectory }

// OverlapError reports a destination that is the source directory or one
// of its files
type OverlapError struct {
	Src string
	Dst string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%v: %s and %s are the same", domain.ErrOverlap, e.Dst, e.Src)
}

func (e *OverlapError) Unwrap() error { return domain.ErrOverlap }

// Options configures a Walker
type Options struct {
	// Include lists the file name suffixes eligible for linking
	Include []string

	// UseCache enables skipping files found in Cached
	UseCache bool

	// Cached holds the absolute paths linked by earlier passes
	Cached cachetree.MembershipSet

	// Reporter receives per-file outcomes; nil means none
	Reporter progress.Reporter
}

// Walker links eligible files from a source tree into a destination tree
type Walker struct {
	fs       afero.Fs
	symlink  afero.Linker
	include  []string
	useCache bool
	cached   cachetree.MembershipSet
	reporter progress.Reporter
}

// NewWalker creates a walker over fsys, which must support symlinks
func NewWalker(fsys afero.Fs, opts Options) (*Walker, error) {
	symlink, ok := fsys.(afero.Linker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSymlinkUnsupported, fsys.Name())
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	cached := opts.Cached
	if cached == nil {
		cached = cachetree.MembershipSet{}
	}

	return &Walker{
		fs:       fsys,
		symlink:  symlink,
		include:  opts.Include,
		useCache: opts.UseCache,
		cached:   cached,
		reporter: reporter,
	}, nil
}

// Walk links every eligible file below srcDir into dstDir and returns the
// source paths it linked.
//
// For a root walk the contents of srcDir land directly in dstDir; otherwise
// they land in dstDir/<base of srcDir>, which is how the walk recurses.
// srcDir is never modified.
func (w *Walker) Walk(srcDir, dstDir string, isRoot bool) ([]string, error) {
	root, rel := srcDir, ""
	if !isRoot {
		root, rel = filepath.Dir(srcDir), filepath.Base(srcDir)
	}

	var rootID string
	if w.useCache {
		var err error
		if rootID, err = cachetree.ResolvePath(root); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", root, err)
		}
	}

	st := &walkState{rootID: rootID, active: make(map[string]bool)}
	return w.walk(st, srcDir, dstDir, isRoot, rel)
}

// walkState is shared by one Walk call and its recursion
type walkState struct {
	// rootID and the per-call rel rebuild the cache key of each file
	// exactly as Forest.Insert records it
	rootID string

	// dstRoot is the resolved top destination directory; the walk never
	// descends into it, so a destination inside the source is not mirrored
	// into itself
	dstRoot string

	// active holds the resolved directories on the current recursion path
	active map[string]bool
}

func (w *Walker) walk(st *walkState, srcDir, dstDir string, isRoot bool, rel string) ([]string, error) {
	info, err := w.fs.Stat(srcDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: srcDir}
		}
		return nil, fmt.Errorf("stat %s: %w", srcDir, err)
	}
	if !info.IsDir() {
		return nil, &NotADirectoryError{Path: srcDir}
	}

	if !isRoot {
		dstDir = filepath.Join(dstDir, filepath.Base(srcDir))
	}

	resolvedSrc, err := cachetree.ResolvePath(srcDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", srcDir, err)
	}
	if st.dstRoot == "" {
		resolvedDst, err := cachetree.ResolvePath(dstDir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dstDir, err)
		}
		if resolvedDst == resolvedSrc {
			return nil, &OverlapError{Src: srcDir, Dst: dstDir}
		}
		st.dstRoot = resolvedDst
	}
	st.active[resolvedSrc] = true
	defer delete(st.active, resolvedSrc)

	if err := w.fs.MkdirAll(dstDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dstDir, err)
	}

	entries, err := afero.ReadDir(w.fs, srcDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", srcDir, err)
	}

	var linked []string
	for _, entry := range entries {
		srcPath := filepath.Join(srcDir, entry.Name())

		mode, err := w.targetMode(srcPath, entry)
		if err != nil {
			logger.Get().Debug("skipping unreadable entry", "path", srcPath, "error", err)
			w.reporter.Skipped(srcPath, domain.SkipNotRegular)
			continue
		}

		switch {
		case mode.IsRegular():
			ok, err := w.linkFile(srcPath, filepath.Join(dstDir, entry.Name()), filepath.Join(st.rootID, rel, entry.Name()))
			if err != nil {
				return nil, err
			}
			if ok {
				linked = append(linked, srcPath)
			}
		case mode.IsDir():
			resolved, err := cachetree.ResolvePath(srcPath)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", srcPath, err)
			}
			if resolved == st.dstRoot {
				logger.Get().Debug("skipping destination inside source", "path", srcPath)
				continue
			}
			if st.active[resolved] {
				logger.Get().Debug("skipping directory cycle", "path", srcPath, "target", resolved)
				w.reporter.Skipped(srcPath, domain.SkipNotRegular)
				continue
			}
			sub, err := w.walk(st, srcPath, dstDir, false, filepath.Join(rel, entry.Name()))
			if err != nil {
				return nil, err
			}
			linked = append(linked, sub...)
		default:
			w.reporter.Skipped(srcPath, domain.SkipNotRegular)
		}
	}

	return linked, nil
}

// targetMode returns the mode of the entry, following symlinks
func (w *Walker) targetMode(path string, entry os.FileInfo) (fs.FileMode, error) {
	if entry.Mode()&os.ModeSymlink == 0 {
		return entry.Mode(), nil
	}
	info, err := w.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Mode(), nil
}

// linkFile links srcPath at dstPath when eligible and reports the outcome
func (w *Walker) linkFile(srcPath, dstPath, cacheKey string) (bool, error) {
	if !domain.HasIncludedSuffix(filepath.Base(srcPath), w.include) {
		w.reporter.Skipped(srcPath, domain.SkipNotIncluded)
		return false, nil
	}
	if w.useCache && w.cached.Contains(cacheKey) {
		w.reporter.Skipped(srcPath, domain.SkipCached)
		return false, nil
	}

	if err := w.removeExisting(srcPath, dstPath); err != nil {
		return false, err
	}

	target, err := filepath.Abs(srcPath)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", srcPath, err)
	}
	if err := w.symlink.SymlinkIfPossible(target, dstPath); err != nil {
		return false, fmt.Errorf("linking %s -> %s: %w", dstPath, target, err)
	}

	w.reporter.Linked(srcPath)
	return true, nil
}

// removeExisting deletes the file or link at dstPath, including dangling
// links. It refuses directories and the source file itself.
func (w *Walker) removeExisting(srcPath, dstPath string) error {
	existing, err := w.lstat(dstPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", dstPath, err)
	}
	if existing.IsDir() {
		return fmt.Errorf("cannot link %s: destination is a directory", dstPath)
	}
	if src, err := w.lstat(srcPath); err == nil && os.SameFile(src, existing) {
		return &OverlapError{Src: srcPath, Dst: dstPath}
	}

	logger.Get().Debug("replacing existing entry", "path", dstPath)
	if err := w.fs.Remove(dstPath); err != nil {
		return fmt.Errorf("removing %s: %w", dstPath, err)
	}
	return nil
}

// lstat stats path without following a final symlink when the filesystem allows
func (w *Walker) lstat(path string) (os.FileInfo, error) {
	if lstater, ok := w.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return w.fs.Stat(path)
}
