package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// datetimeLayouts are tried in order; exiftool's default layout
// ("2006:01:02 15:04:05") comes first since it is overwhelmingly the
// common case.
var datetimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05-07:00",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006:01:02 15:04:05.000",
	"2006:01:02 15:04:05.000000",
}

func parseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// imageDateTags and videoDateTags are the per-media datetime tag
// preference orders.
var (
	imageDateTags = []string{"DateTimeOriginal", "DateTime"}
	videoDateTags = []string{"DateTimeOriginal", "CreateDate", "MediaCreateDate"}
)

func firstDateTime(tags map[string]string, preference []string) *time.Time {
	for _, key := range preference {
		raw, ok := tags[key]
		if !ok {
			continue
		}
		if t, ok := parseDateTime(raw); ok {
			return &t
		}
	}
	return nil
}

// parseGPSCoordinate accepts exiftool's decimal-degree-with-suffix form
// ("30.232630555556 N") and its degree/minute/second form
// ("30 deg 13' 57.47\" N").
func parseGPSCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " deg")
	s = strings.TrimSuffix(s, "°")

	if strings.Contains(s, "deg") || strings.Contains(s, "°") {
		return parseDMSCoordinate(s)
	}

	if hasDirectionSuffix(s) {
		direction := s[len(s)-1:]
		numStr := strings.TrimSpace(s[:len(s)-1])
		val, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, false
		}
		if direction == "S" || direction == "W" {
			val = -val
		}
		return val, true
	}

	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val, true
	}
	return 0, false
}

func hasDirectionSuffix(s string) bool {
	return strings.HasSuffix(s, "N") || strings.HasSuffix(s, "S") ||
		strings.HasSuffix(s, "E") || strings.HasSuffix(s, "W")
}

// parseDMSCoordinate converts "30 deg 13' 57.47\" N" to signed decimal
// degrees: degrees + minutes/60 + seconds/3600, negated for S/W.
func parseDMSCoordinate(s string) (float64, bool) {
	if !hasDirectionSuffix(s) {
		return 0, false
	}
	direction := s[len(s)-1:]
	s = strings.TrimSpace(s[:len(s)-1])

	var degreeStr, rest string
	switch {
	case strings.Contains(s, "deg"):
		parts := strings.SplitN(s, "deg", 2)
		degreeStr, rest = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	case strings.Contains(s, "°"):
		parts := strings.SplitN(s, "°", 2)
		degreeStr, rest = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	default:
		return 0, false
	}

	degrees, err := strconv.ParseFloat(degreeStr, 64)
	if err != nil {
		return 0, false
	}

	var minutes, seconds float64
	if idx := strings.Index(rest, "'"); idx >= 0 {
		minutes, err = strconv.ParseFloat(strings.TrimSpace(rest[:idx]), 64)
		if err != nil {
			return 0, false
		}
		rest = strings.TrimSpace(rest[idx+1:])
	}
	if idx := strings.Index(rest, "\""); idx >= 0 {
		secStr := strings.TrimSpace(rest[:idx])
		if secStr != "" {
			seconds, err = strconv.ParseFloat(secStr, 64)
			if err != nil {
				return 0, false
			}
		}
	}

	result := degrees + minutes/60.0 + seconds/3600.0
	if direction == "S" || direction == "W" {
		result = -result
	}
	return result, true
}

// toRawMap converts exiftool's flat string tags into a JSON-serializable
// map; unknown value types were already stringified by the probe.
func toRawMap(tags map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func gpsFromTags(tags map[string]string) (lat, lon *float64) {
	if raw, ok := tags["GPSLatitude"]; ok {
		if v, ok := parseGPSCoordinate(raw); ok {
			lat = &v
		}
	}
	if raw, ok := tags["GPSLongitude"]; ok {
		if v, ok := parseGPSCoordinate(raw); ok {
			lon = &v
		}
	}
	return lat, lon
}

func dateTagsFor(kind MediaKind) []string {
	if kind == MediaVideo {
		return videoDateTags
	}
	return imageDateTags
}

func unreadableFileError(path string, err error) error {
	return fmt.Errorf("metadata: read %s: %w", path, err)
}
