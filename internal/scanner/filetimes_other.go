//go:build !linux

package scanner

import "io/fs"

// fileTimes falls back to the modification time where the platform stat
// layout is not known.
func fileTimes(info fs.FileInfo) (atime, mtime, ctime int64) {
	mtime = info.ModTime().UnixMilli()
	return mtime, mtime, mtime
}
