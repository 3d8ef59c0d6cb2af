package database

import "time"

// LocalResourceName tags resources found by scanning local folders.
const LocalResourceName = "local"

// Scope names the subset of resources a query operates over. Any value other
// than the constants below is treated as a resource_name tag.
type Scope string

const (
	ScopeResources Scope = "resources"
	ScopeFavorites Scope = "favorites"
	ScopeHistory   Scope = "history"
	ScopePrivacy   Scope = "privacy"
)

// IsTag reports whether the scope selects a single resource_name.
func (s Scope) IsTag() bool {
	switch s {
	case ScopeResources, ScopeFavorites, ScopeHistory, ScopePrivacy, "":
		return false
	}
	return true
}

// excludesPrivacy reports whether privacy-marked resources are hidden.
func (s Scope) excludesPrivacy() bool {
	return s != ScopePrivacy && s != ScopeHistory
}

// Resource is one catalogued file, local or downloaded.
type Resource struct {
	ID           int64  `json:"id"`
	ResourceName string `json:"resourceName"`
	FilePath     string `json:"filePath"`
	FileName     string `json:"fileName"`
	FileExt      string `json:"fileExt"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize"`
	URL          string `json:"url,omitempty"`
	Author       string `json:"author,omitempty"`
	Link         string `json:"link,omitempty"`
	Title        string `json:"title,omitempty"`
	Desc         string `json:"desc,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Quality      string `json:"quality"`
	IsLandscape  int    `json:"isLandscape"`
	AtimeMs      int64  `json:"atimeMs"`
	MtimeMs      int64  `json:"mtimeMs"`
	CtimeMs      int64  `json:"ctimeMs"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// KnownFile is the catalog's view of a scanned path, sent to the scanner so
// unchanged files can be skipped.
type KnownFile struct {
	ID       int64  `json:"id"`
	FilePath string `json:"filePath"`
	MtimeMs  int64  `json:"mtime"`
}

// UnscoredItem is a resource whose image metrics have not been computed.
type UnscoredItem struct {
	ID       int64  `json:"id"`
	FilePath string `json:"filePath"`
}

// MetricsUpdate carries computed image metrics for one resource.
type MetricsUpdate struct {
	ID          int64  `json:"id"`
	Quality     string `json:"quality"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	IsLandscape int    `json:"isLandscape"`
}

// HistoryEntry is one row of the selection history.
type HistoryEntry struct {
	ID         int64 `json:"id"`
	ResourceID int64 `json:"resourceId"`
	CreatedAt  int64 `json:"createdAt"`
}

// Orientation filter values.
const (
	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"
)

// Filters narrow a scope. All set fields are AND-combined; keywords are
// OR-combined among themselves.
type Filters struct {
	Keywords    []string
	Qualities   []string
	Orientation string
}

// Page selects a window of search results. Zero values fall back to page 1
// and DefaultPageSize.
type Page struct {
	Page      int
	PageSize  int
	SortField string
	SortDesc  bool
}

// DefaultPageSize is used when a Page carries no size.
const DefaultPageSize = 20

// SearchResult holds one page of resources and the total match count.
type SearchResult struct {
	List  []Resource `json:"list"`
	Total int        `json:"total"`
}

// Stats summarizes catalog contents for metrics.
type Stats struct {
	TotalImages    int `json:"totalImages"`
	TotalVideos    int `json:"totalVideos"`
	TotalFavorites int `json:"totalFavorites"`
	TotalPrivacy   int `json:"totalPrivacy"`
	TotalUnscored  int `json:"totalUnscored"`
	TotalHistory   int `json:"totalHistory"`
}

var nowMs = func() int64 { return time.Now().UnixMilli() }
