package settings_test

import (
	"context"
	"testing"

	"snatch/internal/settings"
	"snatch/internal/store"
	"snatch/internal/testsupport"
)

func TestLoadMissingBlobYieldsDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	mgr := settings.NewManager(blobs, cfg, nil)

	got, err := mgr.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.DownloadPath != cfg.Downloads.Dir {
		t.Fatalf("expected default download path, got %q", got.DownloadPath)
	}
	if got.MaxConcurrent != cfg.Downloads.MaxConcurrent {
		t.Fatalf("expected default concurrency, got %d", got.MaxConcurrent)
	}
	if got.AudioFormat != cfg.Downloads.AudioFormat {
		t.Fatalf("expected default audio format, got %q", got.AudioFormat)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	mgr := settings.NewManager(blobs, cfg, nil)
	ctx := context.Background()

	saved, err := mgr.Save(ctx, settings.Settings{
		DownloadPath:  cfg.Downloads.Dir,
		MaxConcurrent: 5,
		AudioFormat:   "FLAC",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.AudioFormat != "flac" {
		t.Fatalf("expected normalized audio format, got %q", saved.AudioFormat)
	}

	fresh := settings.NewManager(blobs, cfg, nil)
	got, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.MaxConcurrent != 5 || got.AudioFormat != "flac" {
		t.Fatalf("unexpected reloaded settings: %+v", got)
	}
}

func TestSaveRejectsInvalidConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	mgr := settings.NewManager(blobs, cfg, nil)
	ctx := context.Background()

	for _, limit := range []int{0, -1, 11} {
		_, err := mgr.Save(ctx, settings.Settings{
			DownloadPath:  cfg.Downloads.Dir,
			MaxConcurrent: limit,
			AudioFormat:   "mp3",
		})
		if err == nil {
			t.Fatalf("expected limit %d to be rejected", limit)
		}
	}
	if mgr.MaxConcurrent() != cfg.Downloads.MaxConcurrent {
		t.Fatal("rejected save must not change current settings")
	}
}

func TestSaveRejectsUnknownAudioFormat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	mgr := settings.NewManager(blobs, cfg, nil)

	_, err := mgr.Save(context.Background(), settings.Settings{
		DownloadPath:  cfg.Downloads.Dir,
		MaxConcurrent: 2,
		AudioFormat:   "midi",
	})
	if err == nil {
		t.Fatal("expected unsupported audio format to be rejected")
	}
}

func TestLoadIgnoresMalformedFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	raw := map[string]any{
		"downloadPath":  "",
		"maxConcurrent": 99,
		"audioFormat":   "opus",
	}
	if err := blobs.Set(ctx, store.KeySettings, raw); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	mgr := settings.NewManager(blobs, cfg, nil)
	got, err := mgr.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.DownloadPath != cfg.Downloads.Dir {
		t.Fatalf("expected empty path to fall back, got %q", got.DownloadPath)
	}
	if got.MaxConcurrent != cfg.Downloads.MaxConcurrent {
		t.Fatalf("expected out-of-range limit to fall back, got %d", got.MaxConcurrent)
	}
	if got.AudioFormat != "opus" {
		t.Fatalf("expected valid field to load, got %q", got.AudioFormat)
	}
}
