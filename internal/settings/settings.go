package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"wallswitch/internal/database"
	"wallswitch/internal/media"
)

// Switch modes.
const (
	SwitchRandom     = 1
	SwitchSequential = 2
)

// Sort directions.
const (
	SortAsc  = 1
	SortDesc = -1
)

// Duration is a time.Duration written as a Go duration string ("30m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Settings is the user-editable configuration consulted on every operation.
type Settings struct {
	WallpaperResource    string   `toml:"wallpaper_resource"`
	FilterKeywords       string   `toml:"filter_keywords"`
	Orientation          []string `toml:"orientation"`
	Quality              []string `toml:"quality"`
	SwitchType           int      `toml:"switch_type"`
	SortField            string   `toml:"sort_field"`
	SortType             int      `toml:"sort_type"`
	AllowedFileExt       []string `toml:"allowed_file_ext"`
	LocalResourceFolders []string `toml:"local_resource_folders"`

	SwitchInterval   Duration `toml:"switch_interval"`
	RefreshInterval  Duration `toml:"refresh_interval"`
	QualityInterval  Duration `toml:"quality_interval"`
	DownloadInterval Duration `toml:"download_interval"`
	CleanupInterval  Duration `toml:"cleanup_interval"`

	QualityPageSize  int `toml:"quality_page_size"`
	DownloadPageSize int `toml:"download_page_size"`
	CleanupKeepDays  int `toml:"cleanup_keep_days"`

	DownloadSource   string            `toml:"download_source"`
	RemoteKeywords   string            `toml:"remote_keywords"`
	RemoteSecretKeys map[string]string `toml:"remote_secret_keys"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		WallpaperResource: string(database.ScopeResources),
		SwitchType:        SwitchRandom,
		SortField:         "created_at",
		SortType:          SortDesc,
		AllowedFileExt:    []string{"jpg", "jpeg", "png", "webp", "bmp"},
		SwitchInterval:    Duration{30 * time.Minute},
		RefreshInterval:   Duration{time.Hour},
		QualityInterval:   Duration{time.Minute},
		CleanupInterval:   Duration{24 * time.Hour},
		QualityPageSize:   100,
		DownloadPageSize:  10,
		CleanupKeepDays:   7,
		RemoteSecretKeys:  map[string]string{},
	}
}

// Read decodes settings from r on top of Default, so keys missing from the
// file keep their default values.
func Read(r io.Reader) (Settings, error) {
	s := Default()
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Write encodes settings to w.
func Write(w io.Writer, s Settings) error {
	if err := toml.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

// Load reads a settings file.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings from %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path, creating its directory.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	return f.Close()
}

// Validate checks enumerated fields.
func (s Settings) Validate() error {
	var errs []error
	if s.SwitchType != SwitchRandom && s.SwitchType != SwitchSequential {
		errs = append(errs, fmt.Errorf("switch_type must be %d or %d, got %d", SwitchRandom, SwitchSequential, s.SwitchType))
	}
	if s.SortType != SortAsc && s.SortType != SortDesc {
		errs = append(errs, fmt.Errorf("sort_type must be %d or %d, got %d", SortAsc, SortDesc, s.SortType))
	}
	if s.SortField != "" && !database.ValidSortField(s.SortField) {
		errs = append(errs, fmt.Errorf("unknown sort_field %q", s.SortField))
	}
	for _, q := range s.Quality {
		if !media.ValidQuality(q) {
			errs = append(errs, fmt.Errorf("unknown quality %q", q))
		}
	}
	for _, o := range s.Orientation {
		if o != database.OrientationLandscape && o != database.OrientationPortrait {
			errs = append(errs, fmt.Errorf("unknown orientation %q", o))
		}
	}
	if s.QualityPageSize < 0 || s.DownloadPageSize < 0 || s.CleanupKeepDays < 0 {
		errs = append(errs, errors.New("page sizes and cleanup_keep_days must not be negative"))
	}
	return errors.Join(errs...)
}

// Keywords splits filter_keywords on commas, dropping blanks.
func (s Settings) Keywords() []string {
	return splitKeywords(s.FilterKeywords)
}

// RemoteKeywordList splits remote_keywords on commas, dropping blanks.
func (s Settings) RemoteKeywordList() []string {
	return splitKeywords(s.RemoteKeywords)
}

func splitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// OrientationFilter returns the single configured orientation, or "" when
// zero or both orientations are selected.
func (s Settings) OrientationFilter() string {
	if len(s.Orientation) != 1 {
		return ""
	}
	return s.Orientation[0]
}

// Filters converts the settings into catalog query filters.
func (s Settings) Filters() database.Filters {
	return database.Filters{
		Keywords:    s.Keywords(),
		Qualities:   slices.Clone(s.Quality),
		Orientation: s.OrientationFilter(),
	}
}

// Scope returns the selection scope named by wallpaper_resource.
func (s Settings) Scope() database.Scope {
	if s.WallpaperResource == "" {
		return database.ScopeResources
	}
	return database.Scope(s.WallpaperResource)
}

// Order returns the sequential-mode ordering.
func (s Settings) Order() database.Order {
	return database.Order{Field: s.SortField, Desc: s.SortType == SortDesc}
}

// Sequential reports whether the sequential switch mode is selected.
func (s Settings) Sequential() bool {
	return s.SwitchType == SwitchSequential
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.Orientation = slices.Clone(s.Orientation)
	c.Quality = slices.Clone(s.Quality)
	c.AllowedFileExt = slices.Clone(s.AllowedFileExt)
	c.LocalResourceFolders = slices.Clone(s.LocalResourceFolders)
	c.RemoteSecretKeys = make(map[string]string, len(s.RemoteSecretKeys))
	for k, v := range s.RemoteSecretKeys {
		c.RemoteSecretKeys[k] = v
	}
	return c
}
