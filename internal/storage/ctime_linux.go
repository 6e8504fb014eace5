//go:build linux
// +build linux

package storage

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// creationTime returns the file's inode change time, the closest thing to a
// creation date Linux exposes. Falls back to the modification time.
func creationTime(path string, info os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
}
