package domain

import "strings"

// PathMap is one configured synchronization root
type PathMap struct {
	// Src is the source directory whose files get linked
	Src string `mapstructure:"src"`

	// Dst is the destination directory that receives the links
	Dst string `mapstructure:"dst"`
}

// SkipReason explains why the walker left a source file alone
type SkipReason string

const (
	// SkipNotIncluded means the name matched no include suffix
	SkipNotIncluded SkipReason = "not-included"

	// SkipCached means the file was linked by an earlier pass
	SkipCached SkipReason = "cached"

	// SkipNotRegular means the entry is neither a regular file nor a directory
	SkipNotRegular SkipReason = "not-regular"
)

// HasIncludedSuffix reports whether name ends with one of suffixes.
// The match is exact-trailing: "notes.srt.bak" does not match ".srt".
func HasIncludedSuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
