package config

// MaxConcurrentLimit bounds the operator-adjustable concurrency setting.
const MaxConcurrentLimit = 10

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: "~/.local/share/snatch",
			LogDir:   "~/.local/share/snatch/logs",
		},
		Downloads: Downloads{
			Dir:           "~/Downloads/snatch",
			MaxConcurrent: 3,
			AudioFormat:   "mp3",
		},
		YtDlp: YtDlp{
			Binary:      "yt-dlp",
			InfoTimeout: 60,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
	}
}
