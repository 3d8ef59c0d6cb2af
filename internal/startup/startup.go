package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wallswitch/internal/logging"
	"wallswitch/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds process configuration read from the environment. User
// settings live in the TOML file at SettingsFile.
type Config struct {
	DataDir          string
	SettingsFile     string
	DownloadDir      string
	MetricsPort      string
	MetricsEnabled   bool
	VipsEnabled      bool
	ScanWorkers      int
	WallpaperCommand string

	// Derived paths
	DatabasePath string

	// Feature flags based on directory availability
	DownloadsEnabled bool
}

// ConfigFromEnv reads configuration without logging or touching disk.
func ConfigFromEnv() (*Config, error) {
	dataDir := getEnv("DATA_DIR", defaultDataDir())
	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	settingsFile, err := filepath.Abs(getEnv("SETTINGS_FILE", filepath.Join(dataDir, "settings.toml")))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings file path: %w", err)
	}

	downloadDir, err := filepath.Abs(getEnv("DOWNLOAD_DIR", filepath.Join(dataDir, "downloads")))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download directory path: %w", err)
	}

	return &Config{
		DataDir:          dataDir,
		SettingsFile:     settingsFile,
		DownloadDir:      downloadDir,
		MetricsPort:      getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		VipsEnabled:      getEnvBool("VIPS_ENABLED", false),
		ScanWorkers:      workers.ForMixed(16),
		WallpaperCommand: os.Getenv("WALLPAPER_COMMAND"),
		DatabasePath:     filepath.Join(dataDir, "wallswitch.db"),
	}, nil
}

// LoadConfig loads configuration, logs it and prepares directories. The
// data directory must be writable; the download directory is optional.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	section("CONFIGURATION")
	logging.Info("  DATA_DIR:            %s", config.DataDir)
	logging.Info("  SETTINGS_FILE:       %s", config.SettingsFile)
	logging.Info("  DOWNLOAD_DIR:        %s", config.DownloadDir)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  VIPS_ENABLED:        %v", config.VipsEnabled)
	logging.Info("  SCAN_WORKERS:        %d", config.ScanWorkers)
	logging.Info("  WALLPAPER_COMMAND:   %s", orNone(config.WallpaperCommand))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	section("DIRECTORY SETUP")

	if err := EnsureDataDir(config); err != nil {
		return nil, err
	}
	logging.Info("  [OK] Data directory is writable")

	config.DownloadsEnabled = setupOptionalDir(config.DownloadDir, "downloads")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Downloads:   %s", enabledString(config.DownloadsEnabled))
	logging.Info("    libvips:     %s", enabledString(config.VipsEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// EnsureDataDir creates the data directory and checks it is writable.
func EnsureDataDir(config *Config) error {
	if err := ensureDirectory(config.DataDir, "data"); err != nil {
		return fmt.Errorf("data directory error: %w", err)
	}
	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(config.DataDir); err != nil {
		return fmt.Errorf("data directory is not writable (required for database): %w", err)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wallswitch")
	}
	return "./data"
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Catalog opened and migrated in %v", duration)
}

// LogScannerInit logs scanner worker configuration
func LogScannerInit(probeWorkers int, vipsAvailable bool) {
	logging.Info("")
	section("SCANNER INITIALIZATION")
	logging.Info("  Probe workers: %d", probeWorkers)
	if vipsAvailable {
		logging.Info("  [OK] libvips fallback available")
	} else {
		logging.Info("  libvips fallback disabled, only Go-decodable formats are probed")
	}
}

// LogSchedulerInit logs the scheduled tasks and their intervals
func LogSchedulerInit(tasks map[string]time.Duration) {
	logging.Info("")
	section("SCHEDULER")

	keys := make([]string, 0, len(tasks))
	for k := range tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if tasks[k] <= 0 {
			logging.Info("  %-22s DISABLED", k)
			continue
		}
		logging.Info("  %-22s every %v", k, tasks[k])
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the operational routes at debug level
func LogHTTPRoutes(router *mux.Router) {
	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// ServerConfig holds configuration for the startup log
type ServerConfig struct {
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	section("WALLSWITCH STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
		logging.Info("  Health:          http://0.0.0.0:%s/healthz", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info(rule)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	section("SHUTDOWN INITIATED (received %s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

const rule = "------------------------------------------------------------"

// section logs a titled block header. Callers pass a printf format.
func section(format string, args ...interface{}) {
	logging.Info(rule)
	logging.Info(format, args...)
	logging.Info(rule)
}

func printBanner() {
	banner := `
------------------------------------------------------------
               _ _                _ _       _
 __      ____ _| | |_____      _(_) |_ ___| |__
 \ \ /\ / / _' | | / __\ \ /\ / / | __/ __| '_ \
  \ V  V / (_| | | \__ \\ V  V /| | || (__| | | |
   \_/\_/ \__,_|_|_|___/ \_/\_/ |_|\__\___|_| |_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
