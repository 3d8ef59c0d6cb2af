package scanner

import (
	"time"

	"wallswitch/internal/database"
)

// Event tags every message crossing the worker channel pair.
type Event string

const (
	EventRefreshDirectory  Event = "REFRESH_DIRECTORY"
	EventRefreshProcessing Event = "REFRESH_DIRECTORY::PROCESSING"
	EventRefreshSuccess    Event = "REFRESH_DIRECTORY::SUCCESS"
	EventRefreshFail       Event = "REFRESH_DIRECTORY::FAIL"

	EventHandleQuality  Event = "HANDLE_IMAGE_QUALITY"
	EventQualitySuccess Event = "HANDLE_IMAGE_QUALITY::SUCCESS"
	EventQualityFail    Event = "HANDLE_IMAGE_QUALITY::FAIL"
)

// Request is sent from the host to the worker. Slices are owned by the
// worker once sent.
type Request struct {
	// Seq is assigned by the host and echoed on every reply to the request.
	Seq            uint64
	Event          Event
	ResourceName   string
	FolderPaths    []string
	AllowedFileExt []string
	ExistingFiles  []database.KnownFile
	Manual         bool

	// Items is set for EventHandleQuality.
	Items []database.UnscoredItem
}

// Response is sent from the worker to the host.
type Response struct {
	Seq          uint64
	Event        Event
	ResourceName string

	// TotalFiles is set on EventRefreshProcessing.
	TotalFiles int

	// List holds the files a scan found that are not catalogued yet.
	List     []database.Resource
	// Modified holds catalogued files whose mtime changed, keyed by their
	// existing ID and carrying freshly computed metrics.
	Modified []database.Resource

	Stats  Stats
	Timing Timing

	// Metrics is the quality result on EventQualitySuccess.
	Metrics []database.MetricsUpdate

	// Reason describes a FAIL response.
	Reason string
}

// Stats counts how scanned files compare to the known-file snapshot.
type Stats struct {
	NewFiles       int `json:"newFiles"`
	ModifiedFiles  int `json:"modifiedFiles"`
	UnchangedFiles int `json:"unchangedFiles"`
	MissingFiles   int `json:"missingFiles"`
	TotalProcessed int `json:"totalProcessed"`
}

// Timing breaks down where a scan spent its time.
type Timing struct {
	WalkStart time.Time     `json:"walkStart"`
	WalkEnd   time.Time     `json:"walkEnd"`
	Duration  time.Duration `json:"duration"`
}

// family maps any event to its request event.
func (e Event) family() Event {
	switch e {
	case EventRefreshDirectory, EventRefreshProcessing, EventRefreshSuccess, EventRefreshFail:
		return EventRefreshDirectory
	case EventHandleQuality, EventQualitySuccess, EventQualityFail:
		return EventHandleQuality
	}
	return e
}

// IsFail reports whether the event is a failure reply.
func (e Event) IsFail() bool {
	return e == EventRefreshFail || e == EventQualityFail
}

func failEvent(req Event) Event {
	if req.family() == EventHandleQuality {
		return EventQualityFail
	}
	return EventRefreshFail
}
