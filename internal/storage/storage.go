//////////////////////////////////////////////////////////////////////////////
//
// File-system access for recorded video: listing, metadata, read, delete
//
//////////////////////////////////////////////////////////////////////////////

package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/roadwatch/blackbox/internal/logging"
)

var log = logging.DefaultLogger.WithTag("storage")

var (
	// ErrNotFound indicates a missing file or directory.
	ErrNotFound = errors.New("file not found")

	// ErrReadFailed indicates a file exists but could not be read.
	ErrReadFailed = errors.New("read failed")

	// ErrWriteFailed indicates a mutation (e.g. delete) could not be made.
	ErrWriteFailed = errors.New("write failed")
)

// Extensions recognized as video recordings, compared case-insensitively.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".h264": true,
	".avi":  true,
}

// FileInfo is the metadata the viewer shows for a recording.
type FileInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	IsDirectory bool      `json:"isDirectory"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// IsVideoFile reports whether the path has a recognized video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// ListVideoFiles walks dir recursively and returns the paths of all
// recognized video files as a flat slice. A directory with no videos yields
// an empty slice; a missing root yields ErrNotFound.
func ListVideoFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, dir)
		}
		return nil, errors.Wrap(err, dir)
	}

	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable subtree; skip it rather than failing the listing.
			log.Warn("Skipping %s: %v", path, err)
			return nil
		}
		if !info.IsDir() && IsVideoFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	log.Debug("Found %d video files under %s", len(paths), dir)
	return paths, nil
}

// ReadFile returns the file's contents.
func ReadFile(path string) ([]byte, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, errors.Wrapf(ErrReadFailed, "%s: %v", path, err)
	}
	return data, nil
}

// GetFileInfo returns metadata for the path, or ErrNotFound.
func GetFileInfo(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, errors.Wrap(ErrNotFound, path)
		}
		return FileInfo{}, errors.Wrap(err, path)
	}

	return FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		IsDirectory: info.IsDir(),
		Path:        path,
		CreatedAt:   creationTime(path, info),
		ModifiedAt:  info.ModTime(),
	}, nil
}

// DeleteFiles removes each path. The first failure is reported as
// ErrWriteFailed; already-missing files are not an error.
func DeleteFiles(paths []string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(ErrWriteFailed, "%s: %v", path, err)
		}
		log.Info("Deleted %s", path)
	}
	return nil
}
