package download

import (
	"strings"
	"time"
)

// FromRaw coerces one loosely-typed persisted record into a Download.
// Stored data is never trusted: every field is converted to its declared
// type with an explicit default so partially-malformed or older formats
// still load. Records without an id are unusable and rejected.
func FromRaw(raw map[string]any) (Download, bool) {
	id := strings.TrimSpace(asString(raw["id"]))
	if id == "" {
		return Download{}, false
	}

	status, ok := ParseStatus(asString(raw["status"]))
	if !ok {
		// A record with an unrecognized status cannot be resumed; keep it
		// visible in history instead of dropping it.
		status = StatusFailed
	}

	d := Download{
		ID:         id,
		Title:      asString(raw["title"]),
		URL:        asString(raw["url"]),
		Format:     asString(raw["format"]),
		AudioOnly:  asBool(raw["audioOnly"]),
		Status:     status,
		Progress:   clampProgress(asFloat(raw["progress"])),
		Speed:      asString(raw["speed"]),
		ETA:        asString(raw["eta"]),
		Size:       asString(raw["size"]),
		Downloaded: asString(raw["downloaded"]),
		Timestamp:  asTime(raw["timestamp"]),
		FilePath:   asString(raw["filePath"]),
		Error:      asString(raw["error"]),
	}
	return d, true
}

func asString(value any) string {
	s, _ := value.(string)
	return s
}

func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

func asFloat(value any) float64 {
	f, _ := value.(float64)
	return f
}

// asTime accepts RFC3339 strings as well as numeric epoch values. Epoch
// numbers large enough to be milliseconds are treated as such; this keeps
// records written by earlier releases loadable.
func asTime(value any) time.Time {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case float64:
		if v <= 0 {
			return time.Time{}
		}
		millis := int64(v)
		if millis > 1e12 {
			return time.UnixMilli(millis)
		}
		return time.Unix(millis, 0)
	}
	return time.Time{}
}
