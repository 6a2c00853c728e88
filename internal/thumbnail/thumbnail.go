// Package thumbnail implements the thumbnail builder: a bounded
// preview image for an uploaded photo or video, generated alongside the
// original and never fatal to the surrounding job on failure.
package thumbnail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"photomeet/internal/utils/imaging"
)

// Options bounds the generated preview.
type Options struct {
	MaxWidth     int
	MaxHeight    int
	Quality      int
	ToolTimeout  time.Duration
	VideoFrameAt time.Duration
}

// Builder produces a thumbnail file adjacent to srcPath and returns its
// filename (not full path). A returned error means the surrounding job
// should record the failure and move on; it must not abort processing.
type Builder interface {
	Build(ctx context.Context, srcPath string, isVideo bool, opts Options) (filename string, err error)
}

// ImageVideoBuilder handles images with bimg (libvips) directly and videos
// by grabbing a single frame with ffmpeg before the same bimg resize path.
type ImageVideoBuilder struct{}

// NewBuilder returns the default Builder.
func NewBuilder() *ImageVideoBuilder { return &ImageVideoBuilder{} }

func (b *ImageVideoBuilder) Build(ctx context.Context, srcPath string, isVideo bool, opts Options) (string, error) {
	dir := filepath.Dir(srcPath)
	name := fmt.Sprintf("thumb_%s.jpg", randomHex(8))
	destPath := filepath.Join(dir, name)

	if isVideo {
		if err := b.buildFromVideo(ctx, srcPath, destPath, opts); err != nil {
			return "", err
		}
		return name, nil
	}
	if err := b.buildFromImage(srcPath, destPath, opts); err != nil {
		return "", err
	}
	return name, nil
}

func (b *ImageVideoBuilder) buildFromImage(srcPath, destPath string, opts Options) error {
	buf, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source image: %w", err)
	}
	out, err := imaging.ShrinkToJPEG(buf, opts.MaxWidth, opts.MaxHeight, opts.Quality)
	if err != nil {
		return fmt.Errorf("process image: %w", err)
	}
	return os.WriteFile(destPath, out, 0o644)
}

func (b *ImageVideoBuilder) buildFromVideo(ctx context.Context, srcPath, destPath string, opts Options) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ToolTimeout)
	defer cancel()

	frame, err := os.CreateTemp("", "thumb_frame_*.jpg")
	if err != nil {
		return fmt.Errorf("create temp frame file: %w", err)
	}
	framePath := frame.Name()
	frame.Close()
	defer os.Remove(framePath)

	seek := fmt.Sprintf("%.3f", opts.VideoFrameAt.Seconds())
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-ss", seek, "-i", srcPath,
		"-frames:v", "1", "-q:v", "2", framePath,
	)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extract: %w", err)
	}

	return b.buildFromImage(framePath, destPath, opts)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// fixed-but-unique-enough suffix rather than panic mid-job.
		return hex.EncodeToString([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))[:n*2]
	}
	return hex.EncodeToString(buf)
}
