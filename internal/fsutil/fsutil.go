// Package fsutil holds the file helpers used around a synthesis call:
// preparing the output location, finding local voice models and sizing the
// result for log lines.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	appName        = "tts-cli"
	modelsDirName  = "models"
	dirPermissions = 0o750
)

// ErrModelNotFound is returned when no candidate path holds the model file.
var ErrModelNotFound = errors.New("model not found")

// EnsureParentDir creates the directory that will hold path, including any
// missing parents. It succeeds when the directory already exists and does
// nothing for paths in the current directory.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

// FileSize returns the size of the regular file at path.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}

	return info.Size(), nil
}

// ModelDirs lists the directories searched for a bare model name, in order:
// ./models and the per-user cache.
func ModelDirs() []string {
	dirs := []string{modelsDirName}

	if cacheDir, err := os.UserCacheDir(); err == nil {
		dirs = append(dirs, filepath.Join(cacheDir, appName, modelsDirName))
	}

	return dirs
}

// ResolveModelPath returns the absolute path of a model file. modelName is
// tried as given and inside each of ModelDirs, each time also with ext
// appended.
func ResolveModelPath(modelName, ext string) (string, error) {
	bases := []string{modelName}
	for _, dir := range ModelDirs() {
		bases = append(bases, filepath.Join(dir, modelName))
	}

	for _, base := range bases {
		candidates := []string{base}
		if ext != "" && filepath.Ext(base) != ext {
			candidates = append(candidates, base+ext)
		}

		for _, candidate := range candidates {
			info, err := os.Stat(candidate)
			if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
				continue
			} else if err != nil {
				return "", fmt.Errorf("error checking model path %q: %w", candidate, err)
			}

			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", fmt.Errorf("could not resolve absolute path for %q: %w", candidate, err)
			}

			return abs, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrModelNotFound, modelName)
}

// FormatFileSize renders a byte count with a binary unit, e.g. "1.5 MiB".
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}

	i := -1
	for value >= unit && i < len(suffixes)-1 {
		value /= unit
		i++
	}

	return fmt.Sprintf("%.1f %s", value, suffixes[i])
}
