package media

import (
	"fmt"
	"sync"

	"wallswitch/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes libvips for header probing of formats the Go decoders
// cannot read. Call once at startup; repeated calls are no-ops.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging before Startup so LOG_LEVEL applies to it too.
	vipsLogLevel := vips.LogLevelWarning
	switch logging.GetLevel() {
	case logging.LevelDebug:
		vipsLogLevel = vips.LogLevelInfo
	case logging.LevelWarn:
		vipsLogLevel = vips.LogLevelError
	case logging.LevelError:
		vipsLogLevel = vips.LogLevelCritical
	}

	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, vipsLogLevel)

	// Probing only reads headers; keep the cache small.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      16 * 1024 * 1024,
		MaxCacheSize:     20,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

func probeWithVips(path string) (int, int, error) {
	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return 0, 0, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	return ref.Width(), ref.Height(), nil
}
