package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"wallswitch/internal/filesystem"
	"wallswitch/internal/mediatypes"
)

// fileEntry is one allowed file found by the walk.
type fileEntry struct {
	path string
	info fs.FileInfo
}

// walkFolders recursively walks every folder and returns the allowed files,
// deduplicated by path and sorted. With skipHidden set, dot-prefixed files and
// directories are skipped. Unreadable entries are logged and skipped; a
// missing root is skipped too.
func walkFolders(ctx context.Context, folders []string, allow mediatypes.AllowSet, skipHidden bool) ([]fileEntry, error) {
	byPath := make(map[string]fileEntry)
	retry := filesystem.DefaultRetryConfig()

	for _, root := range folders {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				log.Warn("Error accessing path %s: %v", path, err)
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if skipHidden && path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() || !allow.Allows(path) {
				return nil
			}

			if _, dup := byPath[path]; dup {
				return nil
			}

			var info fs.FileInfo
			if d.Type()&fs.ModeSymlink != 0 {
				info, err = filesystem.StatWithRetry(path, retry)
			} else {
				info, err = d.Info()
				if err != nil {
					info, err = filesystem.StatWithRetry(path, retry)
				}
			}
			if err != nil {
				log.Warn("Error getting info for %s: %v", path, err)
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			byPath[path] = fileEntry{path: path, info: info}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	entries := make([]fileEntry, 0, len(byPath))
	for _, e := range byPath {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	return entries, nil
}
