package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Downloads.MaxConcurrent != 3 {
		t.Fatalf("expected default max_concurrent=3, got %d", cfg.Downloads.MaxConcurrent)
	}
	if cfg.YtDlpBinary() != "yt-dlp" {
		t.Fatalf("expected default binary, got %q", cfg.YtDlpBinary())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
state_dir = "` + dir + `/state"
log_dir = "` + dir + `/logs"

[downloads]
max_concurrent = 5
audio_format = "OPUS"

[ytdlp]
binary = "yt-dlp-nightly"
info_timeout = 15
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Downloads.MaxConcurrent != 5 {
		t.Fatalf("expected max_concurrent=5, got %d", cfg.Downloads.MaxConcurrent)
	}
	if cfg.Downloads.AudioFormat != "opus" {
		t.Fatalf("expected normalized audio format, got %q", cfg.Downloads.AudioFormat)
	}
	if cfg.YtDlpBinary() != "yt-dlp-nightly" {
		t.Fatalf("unexpected binary %q", cfg.YtDlpBinary())
	}
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Downloads.MaxConcurrent = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for max_concurrent=0")
	}
	cfg.Downloads.MaxConcurrent = MaxConcurrentLimit + 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error above the limit")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	expanded, err := ExpandPath("~/downloads")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if !strings.HasPrefix(expanded, home) {
		t.Fatalf("expected %q to start with %q", expanded, home)
	}
}

func TestStatePaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.StateDir = "/var/lib/snatch"
	if cfg.DatabasePath() != "/var/lib/snatch/snatch.db" {
		t.Fatalf("unexpected db path %q", cfg.DatabasePath())
	}
	if cfg.SocketPath() != "/var/lib/snatch/snatchd.sock" {
		t.Fatalf("unexpected socket path %q", cfg.SocketPath())
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
