package domain

import "errors"

// Filesystem errors - 檔案系統層錯誤
var (
	// ErrNotFound indicates the requested path does not exist
	ErrNotFound = errors.New("path not found")

	// ErrNotDirectory indicates expected a directory but got something else
	ErrNotDirectory = errors.New("not a directory")

	// ErrSymlinkUnsupported indicates the filesystem cannot create symbolic links
	ErrSymlinkUnsupported = errors.New("symlinks not supported by filesystem")

	// ErrOverlap indicates a link destination that is the source itself
	ErrOverlap = errors.New("destination overlaps source")
)

// Cache tree errors - 快取樹錯誤
var (
	// ErrCacheMalformed indicates the persisted cache document has a bad shape
	ErrCacheMalformed = errors.New("malformed cache document")

	// ErrDuplicateLink indicates a source file was recorded twice in one pass
	ErrDuplicateLink = errors.New("duplicate link")

	// ErrEmptyPath indicates an inserted path has no segments below its root
	ErrEmptyPath = errors.New("empty cache path")

	// ErrAmbiguousDirectory indicates two sibling directory nodes share a name
	ErrAmbiguousDirectory = errors.New("ambiguous cache directory")

	// ErrOutsideRoot indicates an inserted path is not below its source root
	ErrOutsideRoot = errors.New("path outside source root")
)

// Pass errors - 同步流程錯誤
var (
	// ErrPassInProgress indicates another synchronization pass is running
	ErrPassInProgress = errors.New("sync pass already in progress")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
