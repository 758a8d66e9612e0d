// Package settings manages the runtime preferences that users may change
// without restarting the daemon. Values live in the blob store; the config
// file only supplies first-run defaults.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"snatch/internal/config"
	"snatch/internal/logging"
	"snatch/internal/store"
)

// Settings are the user-adjustable download preferences.
type Settings struct {
	DownloadPath  string `json:"downloadPath"`
	MaxConcurrent int    `json:"maxConcurrent"`
	AudioFormat   string `json:"audioFormat"`
}

// audioFormats are the containers yt-dlp accepts for --audio-format.
var audioFormats = map[string]struct{}{
	"mp3":    {},
	"m4a":    {},
	"aac":    {},
	"flac":   {},
	"opus":   {},
	"vorbis": {},
	"wav":    {},
}

// Validate reports whether the settings are usable.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.DownloadPath) == "" {
		return fmt.Errorf("settings: downloadPath is required")
	}
	if s.MaxConcurrent < 1 || s.MaxConcurrent > config.MaxConcurrentLimit {
		return fmt.Errorf("settings: maxConcurrent must be between 1 and %d", config.MaxConcurrentLimit)
	}
	format := strings.ToLower(strings.TrimSpace(s.AudioFormat))
	if _, ok := audioFormats[format]; !ok {
		return fmt.Errorf("settings: unsupported audioFormat %q", s.AudioFormat)
	}
	return nil
}

// Manager loads and saves settings, applying config defaults for anything
// missing or malformed in the persisted blob.
type Manager struct {
	store    *store.Store
	logger   *slog.Logger
	defaults Settings

	mu      sync.Mutex
	current Settings
}

// NewManager builds a manager whose defaults come from cfg.
func NewManager(blobs *store.Store, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	defaults := Settings{
		DownloadPath:  cfg.Downloads.Dir,
		MaxConcurrent: cfg.Downloads.MaxConcurrent,
		AudioFormat:   cfg.Downloads.AudioFormat,
	}
	return &Manager{
		store:    blobs,
		logger:   logging.WithComponent(logger, "settings"),
		defaults: defaults,
		current:  defaults,
	}
}

// Load reads persisted settings, falling back per-field to defaults. A
// missing or unreadable blob yields the defaults without error.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	var raw map[string]any
	found, err := m.store.Get(ctx, store.KeySettings, &raw)
	if err != nil {
		m.logger.Warn("persisted settings unreadable, using defaults", logging.Error(err))
		m.mu.Lock()
		m.current = m.defaults
		m.mu.Unlock()
		return m.defaults, nil
	}

	loaded := m.defaults
	if found {
		if v, ok := raw["downloadPath"].(string); ok && strings.TrimSpace(v) != "" {
			if expanded, expandErr := config.ExpandPath(v); expandErr == nil {
				loaded.DownloadPath = expanded
			}
		}
		if v, ok := raw["maxConcurrent"].(float64); ok {
			candidate := int(v)
			if candidate >= 1 && candidate <= config.MaxConcurrentLimit {
				loaded.MaxConcurrent = candidate
			}
		}
		if v, ok := raw["audioFormat"].(string); ok && strings.TrimSpace(v) != "" {
			loaded.AudioFormat = strings.ToLower(strings.TrimSpace(v))
		}
	}

	m.mu.Lock()
	m.current = loaded
	m.mu.Unlock()

	m.logger.Info("settings loaded",
		logging.String("download_path", loaded.DownloadPath),
		logging.Int("max_concurrent", loaded.MaxConcurrent),
		logging.String("audio_format", loaded.AudioFormat))
	return loaded, nil
}

// Save validates, persists, and adopts the provided settings.
func (m *Manager) Save(ctx context.Context, s Settings) (Settings, error) {
	expanded, err := config.ExpandPath(s.DownloadPath)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	s.DownloadPath = expanded
	s.AudioFormat = strings.ToLower(strings.TrimSpace(s.AudioFormat))

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	if err := m.store.Set(ctx, store.KeySettings, s); err != nil {
		return Settings{}, fmt.Errorf("persist settings: %w", err)
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.logger.Info("settings saved",
		logging.String("download_path", s.DownloadPath),
		logging.Int("max_concurrent", s.MaxConcurrent),
		logging.String("audio_format", s.AudioFormat))
	return s, nil
}

// Current returns the in-memory settings snapshot.
func (m *Manager) Current() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// MaxConcurrent returns the active concurrency limit. The scheduler calls
// this on every admission pass so saved changes take effect immediately.
func (m *Manager) MaxConcurrent() int {
	return m.Current().MaxConcurrent
}
