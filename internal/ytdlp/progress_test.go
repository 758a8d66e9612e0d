package ytdlp

import "testing"

func TestParseProgressFullLine(t *testing.T) {
	update := ParseProgress("45.2% of 120.50MiB at 2.30MiB/s ETA 00:32")

	if update.Progress == nil || *update.Progress != 45.2 {
		t.Fatalf("unexpected progress: %v", update.Progress)
	}
	if update.Downloaded == nil || *update.Downloaded != "120.50MiB" {
		t.Fatalf("unexpected downloaded: %v", update.Downloaded)
	}
	if update.Speed == nil || *update.Speed != "2.30MiB/s" {
		t.Fatalf("unexpected speed: %v", update.Speed)
	}
	if update.ETA == nil || *update.ETA != "00:32" {
		t.Fatalf("unexpected eta: %v", update.ETA)
	}
}

func TestParseProgressUnrelatedLine(t *testing.T) {
	update := ParseProgress("[youtube] abc: Downloading webpage")
	if !update.Empty() {
		t.Fatalf("expected empty update, got %+v", update)
	}
}

func TestParseProgressPartialFields(t *testing.T) {
	update := ParseProgress("[download] 12.0%")
	if update.Progress == nil || *update.Progress != 12.0 {
		t.Fatalf("unexpected progress: %v", update.Progress)
	}
	if update.Speed != nil || update.ETA != nil {
		t.Fatalf("expected only progress, got %+v", update)
	}

	update = ParseProgress("downloading at 850.00KiB/s now")
	if update.Speed == nil || *update.Speed != "850.00KiB/s" {
		t.Fatalf("unexpected speed: %v", update.Speed)
	}
	if update.Progress != nil {
		t.Fatalf("expected no progress, got %v", *update.Progress)
	}
}

func TestParseProgressTruncatedChunk(t *testing.T) {
	update := ParseProgress("45.")
	if !update.Empty() {
		t.Fatalf("expected partial pattern to be ignored, got %+v", update)
	}
}
