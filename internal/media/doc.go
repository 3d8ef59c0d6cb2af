// Package media computes the image metrics stored on catalogued resources:
// width, height, the resolution tier ("8K", "5K", "4K", "2K" or empty) and
// orientation.
//
// Dimensions come from image.DecodeConfig so only the header is read. The
// x/image decoders add webp, bmp and tiff. libvips, when initialized, covers
// heic and avif. ProbeOriented additionally applies EXIF orientation through
// imaging and is used by the quality backfill.
package media
