package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"
)

// tagsByKind lists the exiftool tags worth requesting per media kind: a
// timestamp, GPS, and a handful of descriptive fields for the raw map.
var tagsByKind = map[MediaKind][]string{
	MediaImage: {
		"DateTimeOriginal", "DateTime", "Model", "CameraModelName",
		"LensModel", "ExposureTime", "FNumber", "ISO", "FocalLength",
		"GPSLatitude", "GPSLongitude", "ImageWidth", "ImageHeight",
		"Orientation", "MIMEType",
	},
	MediaVideo: {
		"DateTimeOriginal", "CreateDate", "MediaCreateDate",
		"VideoCodec", "AudioCodec", "VideoFrameRate", "Duration",
		"GPSLatitude", "GPSLongitude", "MIMEType",
	},
}

// ExifToolProbe shells out to exiftool for every media kind, streaming the
// file over stdin, bounded by a configurable timeout.
type ExifToolProbe struct {
	timeout time.Duration
}

// NewExifToolProbe builds a probe with the given subprocess timeout
// (config.MetadataConfig.ToolTimeout).
func NewExifToolProbe(timeout time.Duration) *ExifToolProbe {
	return &ExifToolProbe{timeout: timeout}
}

func (p *ExifToolProbe) Extract(ctx context.Context, path string, kind MediaKind) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, unreadableFileError(path, err)
	}
	defer f.Close()

	tags, err := p.run(ctx, f, tagsByKind[kind])
	if err != nil {
		// Any parse/tool failure is logged here and swallowed: the job
		// still advances with an empty result.
		log.Printf("metadata: exiftool failed for %s: %v", path, err)
		return &Result{Raw: map[string]interface{}{}}, nil
	}

	lat, lon := gpsFromTags(tags)
	return &Result{
		ShotAt: firstDateTime(tags, dateTagsFor(kind)),
		Lat:    lat,
		Lon:    lon,
		Raw:    toRawMap(tags),
	}, nil
}

func (p *ExifToolProbe) run(ctx context.Context, r io.Reader, tags []string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{"-j", "-charset", "utf8", "-ignoreMinorErrors"}
	for _, tag := range tags {
		args = append(args, "-"+tag)
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, "exiftool", args...)
	cmd.Stdin = r

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("exiftool: %w: %s", err, stderr.String())
	}
	return parseExifToolJSON(stdout.Bytes())
}

func parseExifToolJSON(output []byte) (map[string]string, error) {
	if len(output) == 0 {
		return map[string]string{}, nil
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(output, &rows); err != nil {
		return nil, fmt.Errorf("parse exiftool output: %w", err)
	}
	if len(rows) == 0 {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(rows[0]))
	for k, v := range rows[0] {
		if v != nil {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out, nil
}
