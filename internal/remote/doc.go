// Package remote handles wallpapers that come from remote sources.
//
// A Source answers paged keyword searches. The Downloader saves an item
// under DOWNLOAD_DIR/<source>/ and inserts it into the catalog, reusing the
// existing row when the path is already known. AutoDownloader pulls one page
// per scheduled tick and Cleaner removes old downloads that were never
// favorited or marked private.
package remote
