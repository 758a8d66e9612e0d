package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Process is a live external program owned by the supervisor.
type Process interface {
	// Wait blocks until the program exits and returns its exit code.
	// The error is non-nil only when waiting itself failed, not for a
	// non-zero exit.
	Wait() (int, error)
	// Kill forcibly terminates the program.
	Kill() error
}

// Executor abstracts process execution for testability.
type Executor interface {
	// Start launches the program and streams each output line (stdout and
	// stderr interleaved) to onLine.
	Start(ctx context.Context, binary string, args []string, onLine func(string)) (Process, error)
	// Output runs the program to completion and returns its stdout.
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary      string
	infoTimeout time.Duration
	exec        Executor
}

// New constructs a yt-dlp client.
func New(binary string, infoTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:      binary,
		infoTimeout: time.Duration(infoTimeoutSeconds) * time.Second,
		exec:        commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Resolve fetches metadata for url and shapes it into selectable encodings.
func (c *Client) Resolve(ctx context.Context, url string) (Info, error) {
	if !IsSupportedURL(url) {
		return Info{}, fmt.Errorf("resolve %q: %w", url, ErrUnsupportedURL)
	}

	infoCtx := ctx
	if c.infoTimeout > 0 {
		var cancel context.CancelFunc
		infoCtx, cancel = context.WithTimeout(ctx, c.infoTimeout)
		defer cancel()
	}

	args := []string{"-J", "--no-playlist", url}
	out, err := c.exec.Output(infoCtx, c.binary, args)
	if err != nil {
		return Info{}, fmt.Errorf("fetch video info: %w", err)
	}

	var raw rawInfo
	if err := json.Unmarshal(bytes.TrimSpace(out), &raw); err != nil {
		return Info{}, fmt.Errorf("decode video info: %w", err)
	}
	return shapeInfo(raw), nil
}

// BuildArgs computes the yt-dlp argument list and the sanitized output
// stem for a job. Audio jobs extract into the configured container at
// maximum quality; video jobs merge the selected encoding with the best
// audio track and remux to mp4.
func (c *Client) BuildArgs(url, format, title string, audioOnly bool, destDir, audioFormat string) ([]string, string) {
	stem := SanitizeTitle(title)
	if stem == "" {
		stem = "snatch-download"
	}

	if audioOnly {
		outputPath := filepath.Join(destDir, stem+"."+audioFormat)
		return []string{
			url,
			"-x",
			"--audio-format", audioFormat,
			"--audio-quality", "0",
			"-o", outputPath,
			"--newline",
			"--no-playlist",
		}, stem
	}

	outputPath := filepath.Join(destDir, stem+".%(ext)s")
	return []string{
		url,
		"-f", format + "+bestaudio/best",
		"-o", outputPath,
		"--newline",
		"--no-playlist",
		"--merge-output-format", "mp4",
	}, stem
}

// Start launches a download process for the prepared argument list.
func (c *Client) Start(ctx context.Context, args []string, onLine func(string)) (Process, error) {
	return c.exec.Start(ctx, c.binary, args, onLine)
}

// Version reports the installed yt-dlp version, verifying the binary is
// runnable.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.exec.Output(ctx, c.binary, []string{"--version"})
	if err != nil {
		return "", fmt.Errorf("yt-dlp version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %s", err, firstLine(detail))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (commandExecutor) Start(ctx context.Context, binary string, args []string, onLine func(string)) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	return &osProcess{cmd: cmd, scanners: &wg}, nil
}

type osProcess struct {
	cmd      *exec.Cmd
	scanners *sync.WaitGroup
}

func (p *osProcess) Wait() (int, error) {
	p.scanners.Wait()
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *osProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

type rawInfo struct {
	Title     string      `json:"title"`
	Duration  float64     `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	Formats   []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	ABR            float64 `json:"abr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// Format is one selectable encoding of a source.
type Format struct {
	ID         string `json:"id"`
	Resolution string `json:"resolution"`
	Ext        string `json:"ext"`
	HasAudio   bool   `json:"hasAudio"`
	Size       string `json:"size"`
	Filesize   int64  `json:"filesize"`

	height int
	abr    float64
}

// Info is the shaped metadata for a source URL.
type Info struct {
	Title        string   `json:"title"`
	Formats      []Format `json:"formats"`
	AudioFormats []Format `json:"audioFormats"`
	Duration     float64  `json:"duration"`
	Thumbnail    string   `json:"thumbnail"`
}

func shapeInfo(raw rawInfo) Info {
	info := Info{
		Title:        raw.Title,
		Duration:     raw.Duration,
		Thumbnail:    raw.Thumbnail,
		Formats:      make([]Format, 0),
		AudioFormats: make([]Format, 0),
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}

	seenVideo := make(map[string]struct{})
	seenAudio := make(map[float64]struct{})
	for _, f := range raw.Formats {
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		hasAudio := f.ACodec != "" && f.ACodec != "none"
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}

		if hasVideo && f.Height > 0 {
			key := fmt.Sprintf("%dp-%t", f.Height, hasAudio)
			if _, ok := seenVideo[key]; ok {
				continue
			}
			seenVideo[key] = struct{}{}
			ext := f.Ext
			if ext == "" {
				ext = "mp4"
			}
			info.Formats = append(info.Formats, Format{
				ID:         f.FormatID,
				Resolution: fmt.Sprintf("%dp", f.Height),
				Ext:        ext,
				HasAudio:   hasAudio,
				Size:       displaySize(size),
				Filesize:   size,
				height:     f.Height,
			})
			continue
		}

		if hasAudio && !hasVideo {
			abr := f.ABR
			if abr == 0 {
				abr = 128
			}
			if _, ok := seenAudio[abr]; ok {
				continue
			}
			seenAudio[abr] = struct{}{}
			ext := f.Ext
			if ext == "" {
				ext = "m4a"
			}
			info.AudioFormats = append(info.AudioFormats, Format{
				ID:         f.FormatID,
				Resolution: fmt.Sprintf("%.0fkbps", abr),
				Ext:        ext,
				HasAudio:   true,
				Size:       displaySize(size),
				Filesize:   size,
				abr:        abr,
			})
		}
	}

	sort.SliceStable(info.Formats, func(i, j int) bool {
		return info.Formats[i].height > info.Formats[j].height
	})
	sort.SliceStable(info.AudioFormats, func(i, j int) bool {
		return info.AudioFormats[i].abr > info.AudioFormats[j].abr
	})
	return info
}

func displaySize(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
