package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// FileType represents the type of a catalogued file.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video wallpaper.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".avi":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".avi":  "video/x-msvideo",
}

// NormalizeExt lowercases ext and ensures a leading dot. "JPG", ".jpg" and
// "jpg" all become ".jpg". Empty input stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ExtOf returns the normalized extension of a path.
func ExtOf(path string) string {
	return NormalizeExt(filepath.Ext(path))
}

// GetFileType returns the FileType for a given file extension.
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	ext = NormalizeExt(ext)
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[NormalizeExt(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}

// AllowSet is a normalized extension allow-list.
type AllowSet map[string]struct{}

// NewAllowSet normalizes and deduplicates the configured extensions.
// Blank entries are dropped.
func NewAllowSet(exts []string) AllowSet {
	set := make(AllowSet, len(exts))
	for _, e := range exts {
		if n := NormalizeExt(e); n != "" && n != "." {
			set[n] = struct{}{}
		}
	}
	return set
}

// Allows reports whether the extension of path is in the set.
func (s AllowSet) Allows(path string) bool {
	_, ok := s[ExtOf(path)]
	return ok
}

// List returns the set's extensions in sorted order.
func (s AllowSet) List() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
