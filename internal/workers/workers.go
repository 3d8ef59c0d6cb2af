package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the scan pool size.
const EnvOverride = "SCAN_WORKERS"

// Count returns the number of workers for a task type. It reads GOMAXPROCS,
// which follows container CPU limits, and scales it by multiplier:
//   - 1.0 for CPU-bound tasks (decoding)
//   - 2.0 for I/O-bound tasks (stat, header reads)
//   - 1.5 for mixed tasks (metric probing)
//
// limit caps the result; 0 means no cap. SCAN_WORKERS overrides the
// calculation but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
