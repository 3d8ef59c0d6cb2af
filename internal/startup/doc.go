// Package startup handles process configuration and startup/shutdown logging.
//
// # Configuration
//
// Process configuration is read from environment variables via [LoadConfig]
// (or [ConfigFromEnv] for tools that should not log a banner). User-facing
// settings such as folders, intervals and the selection scope live in the
// TOML settings file and are handled by the settings package.
//
//   - DATA_DIR: Directory holding the catalog database (default: user config dir/wallswitch)
//   - SETTINGS_FILE: Path to the TOML settings file (default: DATA_DIR/settings.toml)
//   - DOWNLOAD_DIR: Root directory for remote downloads (default: DATA_DIR/downloads)
//   - METRICS_PORT: Prometheus metrics and health port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - VIPS_ENABLED: Start libvips for formats the Go decoders cannot read (default: false)
//   - SCAN_WORKERS: Pin the probe worker pool size
//   - WALLPAPER_COMMAND: Command that applies a wallpaper; {path} is replaced by the file path
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X wallswitch/internal/startup.Version=1.0.0"
package startup
