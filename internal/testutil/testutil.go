// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// WriteTree creates each file below root, making parent directories as needed.
// Keys are slash-separated paths relative to root.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test file %s: %v", rel, err)
		}
	}
}

// Links walks root and returns every symlink found, keyed by slash-separated
// path relative to root, with its target as value. A missing root has none.
func Links(t *testing.T, root string) map[string]string {
	t.Helper()

	links := make(map[string]string)
	if _, err := os.Lstat(root); os.IsNotExist(err) {
		return links
	}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return nil
		}
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		links[filepath.ToSlash(rel)] = target
		return nil
	})
	if err != nil {
		t.Fatalf("failed to scan links below %s: %v", root, err)
	}

	return links
}

// LinkNames returns the sorted keys of Links
func LinkNames(t *testing.T, root string) []string {
	t.Helper()

	links := Links(t, root)
	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequireSymlinks skips the test when the platform cannot create symlinks
func RequireSymlinks(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	if err := os.Symlink(filepath.Join(dir, "target"), filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		<-ticker.C
	}
}

// AssertEventually asserts that a condition becomes true within timeout
func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msgAndArgs ...interface{}) {
	t.Helper()

	if !WaitForCondition(timeout, condition) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("condition not met within %v: %v", timeout, msgAndArgs[0])
		} else {
			t.Fatalf("condition not met within %v", timeout)
		}
	}
}
