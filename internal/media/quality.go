package media

// Quality is a resolution tier derived from image dimensions.
type Quality string

const (
	Quality8K Quality = "8K"
	Quality5K Quality = "5K"
	Quality4K Quality = "4K"
	Quality2K Quality = "2K"
	// QualityNone is stored for images below 2K and for rows not yet probed.
	QualityNone Quality = ""
)

// Orientation values stored in resources.is_landscape.
const (
	OrientationUnknown   = -1
	OrientationPortrait  = 0
	OrientationLandscape = 1
)

type tier struct {
	long, short int
	quality     Quality
}

// Tiers are checked in order; the first match wins. Comparing long and short
// sides makes portrait images rank the same as their landscape equivalent.
var tiers = []tier{
	{7680, 4320, Quality8K},
	{5120, 2880, Quality5K},
	{4096, 2160, Quality4K},
	{3840, 2160, Quality4K},
	{2560, 1440, Quality2K},
}

// QualityFor returns the tier for the given dimensions.
func QualityFor(width, height int) Quality {
	long, short := width, height
	if short > long {
		long, short = short, long
	}
	for _, t := range tiers {
		if long >= t.long && short >= t.short {
			return t.quality
		}
	}
	return QualityNone
}

// IsLandscape returns 1 when width exceeds height and 0 otherwise.
// Zero dimensions mean the image was not probed and yield -1.
func IsLandscape(width, height int) int {
	if width <= 0 || height <= 0 {
		return OrientationUnknown
	}
	if width > height {
		return OrientationLandscape
	}
	return OrientationPortrait
}

// ValidQuality reports whether q names a known tier.
func ValidQuality(q string) bool {
	switch Quality(q) {
	case Quality8K, Quality5K, Quality4K, Quality2K:
		return true
	}
	return false
}
