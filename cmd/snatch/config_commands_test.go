package main

import (
	"os"
	"path/filepath"
	"testing"

	"snatch/internal/testsupport"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "unused.sock", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)
	requireContains(t, out, "downloads.dir")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config on disk: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "unused.sock", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "unused.sock", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsPathsAndTools(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, "unused.sock", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, configPath)
	requireContains(t, out, cfg.Downloads.Dir)
	requireContains(t, out, cfg.DatabasePath())
	requireContains(t, out, "yt-dlp:")
	requireContains(t, out, "ffmpeg:")
	requireContains(t, out, "Configuration OK")
}
