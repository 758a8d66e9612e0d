package download

import (
	"testing"
	"time"
)

func TestFromRawFullRecord(t *testing.T) {
	raw := map[string]any{
		"id":         "abc-123",
		"title":      "Some Clip",
		"url":        "https://www.youtube.com/watch?v=abc",
		"format":     "bestvideo",
		"audioOnly":  false,
		"status":     "completed",
		"progress":   100.0,
		"speed":      "",
		"eta":        "",
		"size":       "120.50MiB",
		"downloaded": "120.50MiB",
		"timestamp":  "2026-08-01T10:00:00Z",
		"filePath":   "/downloads/Some_Clip.mp4",
	}

	d, ok := FromRaw(raw)
	if !ok {
		t.Fatal("expected record to coerce")
	}
	if d.ID != "abc-123" || d.Status != StatusCompleted || d.Progress != 100 {
		t.Fatalf("unexpected record: %+v", d)
	}
	if d.FilePath != "/downloads/Some_Clip.mp4" {
		t.Fatalf("unexpected file path: %q", d.FilePath)
	}
	want := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if !d.Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp: %v", d.Timestamp)
	}
}

func TestFromRawRejectsMissingID(t *testing.T) {
	if _, ok := FromRaw(map[string]any{"title": "no id"}); ok {
		t.Fatal("expected record without id to be rejected")
	}
	if _, ok := FromRaw(map[string]any{"id": "   "}); ok {
		t.Fatal("expected blank id to be rejected")
	}
}

func TestFromRawUnknownStatusBecomesFailed(t *testing.T) {
	d, ok := FromRaw(map[string]any{"id": "x", "status": "paused"})
	if !ok {
		t.Fatal("expected record to coerce")
	}
	if d.Status != StatusFailed {
		t.Fatalf("expected failed status, got %q", d.Status)
	}
}

func TestFromRawMismatchedTypesFallBack(t *testing.T) {
	d, ok := FromRaw(map[string]any{
		"id":       "x",
		"status":   "queued",
		"title":    42.0,
		"progress": "not a number",
	})
	if !ok {
		t.Fatal("expected record to coerce")
	}
	if d.Title != "" {
		t.Fatalf("expected non-string title to default, got %q", d.Title)
	}
	if d.Progress != 0 {
		t.Fatalf("expected non-numeric progress to default, got %v", d.Progress)
	}
}

func TestFromRawEpochTimestamps(t *testing.T) {
	millis := map[string]any{"id": "a", "status": "queued", "timestamp": 1754042400000.0}
	d, _ := FromRaw(millis)
	if d.Timestamp.Year() != 2025 {
		t.Fatalf("expected millisecond epoch to decode, got %v", d.Timestamp)
	}

	seconds := map[string]any{"id": "b", "status": "queued", "timestamp": 1754042400.0}
	d, _ = FromRaw(seconds)
	if d.Timestamp.Year() != 2025 {
		t.Fatalf("expected second epoch to decode, got %v", d.Timestamp)
	}
}
