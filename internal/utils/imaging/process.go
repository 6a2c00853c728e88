// Package imaging wraps the bimg (libvips) calls the thumbnail builder
// needs: downscale into a bounded JPEG, honoring orientation and flattening
// alpha onto white.
package imaging

import (
	"fmt"
	"io"

	"github.com/h2non/bimg"
)

// ShrinkToJPEG downscales buf to fit within maxWidth x maxHeight, preserving
// aspect ratio and never enlarging, and encodes the result as JPEG at the
// given quality. The EXIF orientation tag is applied; transparent pixels are
// composited onto white.
func ShrinkToJPEG(buf []byte, maxWidth, maxHeight, quality int) ([]byte, error) {
	out, err := bimg.NewImage(buf).Process(bimg.Options{
		Width:        maxWidth,
		Height:       maxHeight,
		Crop:         false,
		Enlarge:      false,
		Type:         bimg.JPEG,
		Quality:      quality,
		NoAutoRotate: false,
		Background:   bimg.Color{R: 255, G: 255, B: 255},
	})
	if err != nil {
		return nil, fmt.Errorf("shrink image: %w", err)
	}
	return out, nil
}

// ShrinkStreamToJPEG is ShrinkToJPEG over a reader.
func ShrinkStreamToJPEG(r io.Reader, maxWidth, maxHeight, quality int) ([]byte, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source image: %w", err)
	}
	return ShrinkToJPEG(buf, maxWidth, maxHeight, quality)
}
