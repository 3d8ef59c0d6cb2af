package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NormalizeFolders makes folder paths absolute and clean, removes duplicates
// and drops any folder already covered by a configured ancestor. The result
// is sorted by path length, longest first.
func NormalizeFolders(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	var cleaned []string
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		cleaned = append(cleaned, p)
	}

	// Shortest first so ancestors are kept before their descendants are checked.
	sort.Slice(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) < len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})

	var kept []string
	for _, p := range cleaned {
		covered := false
		for _, anc := range kept {
			if isWithin(p, anc) {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, p)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if len(kept[i]) != len(kept[j]) {
			return len(kept[i]) > len(kept[j])
		}
		return kept[i] < kept[j]
	})
	return kept
}

// isWithin reports whether path lies strictly inside dir.
func isWithin(path, dir string) bool {
	if strings.HasSuffix(dir, string(os.PathSeparator)) {
		return strings.HasPrefix(path, dir) && path != dir
	}
	return strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// ExistingFolders returns the folders that exist and are directories.
func ExistingFolders(paths []string) []string {
	var out []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
