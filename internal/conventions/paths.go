package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default tilegrab data directory name (relative to home).
	DefaultDataDir = ".tilegrab"
	// DBFile is the task database filename inside the data directory.
	DBFile = "tilegrab.db"
	// DownloadsDir is the subdirectory for downloaded tile output.
	DownloadsDir = "downloads"
)

// DBPath returns the full path to the task database inside the data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// OutputPath resolves a task output destination. Absolute paths are kept as
// given, relative paths land inside the data directory's downloads
// subdirectory.
func OutputPath(dataDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, DownloadsDir, path)
}
