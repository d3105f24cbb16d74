package domain

import "path/filepath"

const (
	SnapshotFile = "items.json"
	StateFile    = "state.json"
	ThumbDirName = "thumbs"
)

// Paths holds the on-disk layout of the local cache.
type Paths struct {
	CacheDir     string
	SnapshotPath string
	StatePath    string
	ThumbDir     string
}

// NewPaths lays out the cache files under cacheDir.
func NewPaths(cacheDir string) *Paths {
	return &Paths{
		CacheDir:     cacheDir,
		SnapshotPath: filepath.Join(cacheDir, SnapshotFile),
		StatePath:    filepath.Join(cacheDir, StateFile),
		ThumbDir:     filepath.Join(cacheDir, ThumbDirName),
	}
}
