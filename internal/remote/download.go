package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wallswitch/internal/database"
	"wallswitch/internal/logging"
	"wallswitch/internal/media"
	"wallswitch/internal/mediatypes"
	"wallswitch/internal/metrics"
)

var log = logging.Component("remote")

var (
	// ErrUnknownSource means no source is registered under a name.
	ErrUnknownSource = errors.New("unknown remote source")
	// ErrNoURL means an item carries neither an image nor a video URL.
	ErrNoURL = errors.New("item has no download url")
)

// Downloader stores remote items under dir/<source>/ and catalogs them.
type Downloader struct {
	db     *database.Database
	dir    string
	client *http.Client
}

// NewDownloader creates a Downloader. A nil client gets a 2 minute timeout.
func NewDownloader(db *database.Database, dir string, client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Downloader{db: db, dir: dir, client: client}
}

// Dir returns the download root.
func (d *Downloader) Dir() string {
	return d.dir
}

// Download fetches an item and inserts it as a resource tagged with the
// source name. When the target path is already catalogued the existing row
// is returned with created set to false and nothing is fetched.
func (d *Downloader) Download(ctx context.Context, source string, it Item) (database.Resource, bool, error) {
	res, created, err := d.download(ctx, source, it)
	switch {
	case err != nil:
		metrics.DownloadsTotal.WithLabelValues(source, "error").Inc()
	case created:
		metrics.DownloadsTotal.WithLabelValues(source, "created").Inc()
	default:
		metrics.DownloadsTotal.WithLabelValues(source, "reused").Inc()
	}
	return res, created, err
}

func (d *Downloader) download(ctx context.Context, source string, it Item) (database.Resource, bool, error) {
	rawURL := it.URL()
	if rawURL == "" {
		return database.Resource{}, false, ErrNoURL
	}

	dirName := sanitize(source)
	if dirName == "" || dirName == "." || dirName == ".." {
		return database.Resource{}, false, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	target := filepath.Join(d.dir, dirName, fileNameFor(it, rawURL))

	if existing, err := d.db.GetResourceByPath(ctx, target); err == nil {
		if _, statErr := os.Stat(target); statErr == nil {
			return existing, false, nil
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		return database.Resource{}, false, err
	}

	if err := d.fetch(ctx, rawURL, target); err != nil {
		return database.Resource{}, false, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return database.Resource{}, false, fmt.Errorf("stat download: %w", err)
	}

	ext := mediatypes.ExtOf(target)
	r := database.Resource{
		ResourceName: source,
		FilePath:     target,
		FileName:     filepath.Base(target),
		FileExt:      strings.TrimPrefix(ext, "."),
		FileType:     string(mediatypes.GetFileType(ext)),
		FileSize:     info.Size(),
		URL:          rawURL,
		Author:       it.Author,
		Link:         it.Link,
		Title:        it.Title,
		Desc:         it.Desc,
		IsLandscape:  media.OrientationUnknown,
		MtimeMs:      info.ModTime().UnixMilli(),
	}
	if it.Width > 0 && it.Height > 0 {
		m := media.NewMetrics(it.Width, it.Height)
		r.Width, r.Height = m.Width, m.Height
		r.Quality = string(m.Quality)
		r.IsLandscape = m.IsLandscape
	}

	saved, created, err := d.db.InsertResource(ctx, r)
	if err != nil {
		return database.Resource{}, false, err
	}
	if created {
		log.Debug("Downloaded %s from %s (%d bytes)", saved.FilePath, source, saved.FileSize)
	}
	return saved, created, nil
}

// fetch writes the body of rawURL to target through a temp file in the same
// directory, so a failed download never leaves a partial file behind.
func (d *Downloader) fetch(ctx context.Context, rawURL, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("save download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

// fileNameFor picks the stored file name: the item's own name when given,
// otherwise the URL's last path segment, otherwise a random uuid.
func fileNameFor(it Item, rawURL string) string {
	ext := mediatypes.NormalizeExt(it.FileExt)

	var urlBase string
	if u, err := url.Parse(rawURL); err == nil {
		urlBase = path.Base(u.Path)
		if urlBase == "/" || urlBase == "." {
			urlBase = ""
		}
	}
	if ext == "" {
		ext = mediatypes.ExtOf(urlBase)
	}
	if ext == "" {
		ext = ".jpg"
	}

	name := trimExt(sanitize(it.FileName))
	if name == "" {
		name = trimExt(sanitize(urlBase))
	}
	if name == "" || name == "." || name == ".." {
		name = uuid.NewString()
	}
	return name + ext
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// sanitize strips path separators and characters that are awkward in file
// names.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, s)
}
