package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("a.mp4"))
	assert.True(t, IsVideoFile("A.MP4"))
	assert.True(t, IsVideoFile("rear_20260829.h264"))
	assert.True(t, IsVideoFile("clip.AVI"))
	assert.False(t, IsVideoFile("notes.txt"))
	assert.False(t, IsVideoFile("mp4"))
	assert.False(t, IsVideoFile("archive.mp4.bak"))
}

func TestListVideoFilesRecursive(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	writeFile(t, filepath.Join(dir, "front.mp4"), []byte("a"))
	writeFile(t, filepath.Join(dir, "event", "rear.H264"), []byte("b"))
	writeFile(t, filepath.Join(dir, "event", "notes.txt"), []byte("c"))
	writeFile(t, filepath.Join(dir, "deep", "nested", "cabin.avi"), []byte("d"))

	paths, err := ListVideoFiles(dir)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(paths))
	for _, p := range paths {
		assert.True(t, IsVideoFile(p))
	}
}

func TestListVideoFilesEmpty(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	writeFile(t, filepath.Join(dir, "readme.md"), []byte("x"))

	// No videos is an empty result, not an error.
	paths, err := ListVideoFiles(dir)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(paths))
}

func TestListVideoFilesMissingRoot(t *testing.T) {
	_, err := ListVideoFiles("/no/such/directory")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestReadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "front.mp4")
	writeFile(t, path, []byte("payload"))

	data, err := ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, err = ReadFile(filepath.Join(dir, "missing.mp4"))
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestGetFileInfo(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "front.mp4")
	writeFile(t, path, []byte("12345"))

	info, err := GetFileInfo(path)
	assert.NoError(t, err)
	assert.Equal(t, "front.mp4", info.Name)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, path, info.Path)
	assert.False(t, info.IsDirectory)
	assert.False(t, info.CreatedAt.IsZero())
	assert.False(t, info.ModifiedAt.IsZero())

	dirInfo, err := GetFileInfo(dir)
	assert.NoError(t, err)
	assert.True(t, dirInfo.IsDirectory)

	_, err = GetFileInfo(filepath.Join(dir, "missing.mp4"))
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestDeleteFiles(t *testing.T) {
	dir, err := ioutil.TempDir("", "storage")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	writeFile(t, a, []byte("a"))
	writeFile(t, b, []byte("b"))

	// Deleting a mix of existing and already-missing files succeeds.
	err = DeleteFiles([]string{a, filepath.Join(dir, "gone.mp4"), b})
	assert.NoError(t, err)

	_, err = os.Stat(a)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(b)
	assert.True(t, os.IsNotExist(err))
}
