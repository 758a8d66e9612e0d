// Package ytdlp mediates access to the yt-dlp executable.
//
// It normalizes command invocation, resolves source URLs into available
// encodings, parses progress output, and exposes a testable process
// abstraction so the supervisor never touches os/exec directly.
//
// Prefer this package over ad-hoc exec.Command usage when interacting with
// yt-dlp so argument construction and output handling remain consistent.
package ytdlp
