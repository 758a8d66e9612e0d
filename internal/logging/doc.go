// Package logging builds the slog loggers used across snatch and provides
// attribute helpers so call sites stay terse. Two output formats are
// supported: a pretty console format for interactive use and JSON for log
// files and scraping.
package logging
