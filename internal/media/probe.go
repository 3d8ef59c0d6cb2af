package media

import (
	"errors"
	"fmt"
	"image"
	"os"

	"wallswitch/internal/logging"
	"wallswitch/internal/mediatypes"
	"wallswitch/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxOrientedPixels bounds the full decode used to honor EXIF orientation.
// Larger images fall back to header dimensions.
const MaxOrientedPixels = 20_000_000

// ErrNotImage is returned when probing a file that is not an image.
var ErrNotImage = errors.New("not an image")

// Metrics are the computed image attributes stored on a resource.
type Metrics struct {
	Width       int
	Height      int
	Quality     Quality
	IsLandscape int
}

// NewMetrics derives quality and orientation from dimensions.
func NewMetrics(width, height int) Metrics {
	return Metrics{
		Width:       width,
		Height:      height,
		Quality:     QualityFor(width, height),
		IsLandscape: IsLandscape(width, height),
	}
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// Probe computes metrics from the image header. Formats the standard decoders
// do not understand (heic, avif) go through libvips when it is available.
func Probe(path string) (Metrics, error) {
	if mediatypes.GetFileType(mediatypes.ExtOf(path)) != mediatypes.FileTypeImage {
		return Metrics{}, ErrNotImage
	}

	dims, err := GetImageDimensions(path)
	if err == nil {
		metrics.MetricProbeTotal.WithLabelValues("config", "success").Inc()
		return NewMetrics(dims.Width, dims.Height), nil
	}
	metrics.MetricProbeTotal.WithLabelValues("config", "error").Inc()

	if !errors.Is(err, image.ErrFormat) || !IsVipsAvailable() {
		return Metrics{}, fmt.Errorf("probe %s: %w", path, err)
	}

	w, h, verr := probeWithVips(path)
	if verr != nil {
		metrics.MetricProbeTotal.WithLabelValues("vips", "error").Inc()
		return Metrics{}, fmt.Errorf("probe %s: %w", path, verr)
	}
	metrics.MetricProbeTotal.WithLabelValues("vips", "success").Inc()
	return NewMetrics(w, h), nil
}

// ProbeOriented is Probe with EXIF orientation applied, so a rotated phone
// photo reports its displayed orientation. Only JPEG carries the tag; other
// formats and oversized images return the header result.
func ProbeOriented(path string) (Metrics, error) {
	m, err := Probe(path)
	if err != nil {
		return m, err
	}

	ext := mediatypes.ExtOf(path)
	if ext != ".jpg" && ext != ".jpeg" {
		return m, nil
	}
	if m.Width*m.Height > MaxOrientedPixels {
		return m, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		metrics.MetricProbeTotal.WithLabelValues("imaging", "error").Inc()
		logging.Debug("Oriented decode failed for %s, using header dimensions: %v", path, err)
		return m, nil
	}
	metrics.MetricProbeTotal.WithLabelValues("imaging", "success").Inc()

	b := img.Bounds()
	return NewMetrics(b.Dx(), b.Dy()), nil
}
