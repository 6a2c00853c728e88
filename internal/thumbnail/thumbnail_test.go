package thumbnail

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestBuild_Image_ProducesBoundedJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "orig.jpg")
	writeTestJPEG(t, src, 1600, 1200)

	b := NewBuilder()
	opts := Options{MaxWidth: 512, MaxHeight: 512, Quality: 85, ToolTimeout: 30 * time.Second, VideoFrameAt: time.Second}

	name, err := b.Build(context.Background(), src, false, opts)
	require.NoError(t, err)
	assert.Contains(t, name, "thumb_")
	assert.Contains(t, name, ".jpg")

	destPath := filepath.Join(dir, name)
	info, err := os.Stat(destPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRandomHex_ReturnsRequestedLength(t *testing.T) {
	h := randomHex(8)
	assert.Len(t, h, 16)
}

func TestRandomHex_IsUnlikelyToCollide(t *testing.T) {
	a := randomHex(8)
	b := randomHex(8)
	assert.NotEqual(t, a, b)
}
