//go:build linux

package scanner

import (
	"io/fs"
	"syscall"
)

// fileTimes returns access, modification and change times in Unix milliseconds.
func fileTimes(info fs.FileInfo) (atime, mtime, ctime int64) {
	mtime = info.ModTime().UnixMilli()
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return mtime, mtime, mtime
	}
	atime = int64(st.Atim.Sec)*1000 + int64(st.Atim.Nsec)/1e6
	ctime = int64(st.Ctim.Sec)*1000 + int64(st.Ctim.Nsec)/1e6
	return atime, mtime, ctime
}
