package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"snatch/internal/config"
	"snatch/internal/deps"
	"snatch/internal/download"
	"snatch/internal/logging"
	"snatch/internal/notifications"
	"snatch/internal/scheduler"
	"snatch/internal/settings"
	"snatch/internal/store"
	"snatch/internal/supervisor"
	"snatch/internal/ytdlp"
)

// Daemon owns the download engine and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	blobs    *store.Store
	registry *download.Registry
	hub      *download.Hub
	settings *settings.Manager
	client   *ytdlp.Client
	sched    *scheduler.Scheduler
	sup      *supervisor.Supervisor
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Active       int
	Pending      int
	Counts       map[download.Status]int
	Dependencies []deps.Status
	DBPath       string
	LockFilePath string
	SocketPath   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, blobs *store.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || blobs == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		blobs:    blobs,
		hub:      download.NewHub(0),
		notifier: notifications.NewService(cfg),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.registry = download.NewRegistry(blobs, logger, d.hub)
	d.settings = settings.NewManager(blobs, cfg, logger)

	if d.client == nil {
		client, err := ytdlp.New(cfg.YtDlpBinary(), cfg.YtDlp.InfoTimeout)
		if err != nil {
			return nil, fmt.Errorf("init yt-dlp client: %w", err)
		}
		d.client = client
	}
	return d, nil
}

// Option customizes daemon construction.
type Option func(*Daemon)

// WithYtDlpClient injects a custom yt-dlp client (primarily for tests).
func WithYtDlpClient(client *ytdlp.Client) Option {
	return func(d *Daemon) {
		if client != nil {
			d.client = client
		}
	}
}

// WithNotifier injects a custom notification service (primarily for tests).
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// Start acquires the single-instance lock, loads persisted state, and
// begins admitting queued jobs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another snatch daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.registry.Load(d.ctx); err != nil {
		d.releaseLock()
		return fmt.Errorf("load downloads: %w", err)
	}
	if _, err := d.settings.Load(d.ctx); err != nil {
		d.releaseLock()
		return fmt.Errorf("load settings: %w", err)
	}

	d.sched = scheduler.New(d.settings.MaxConcurrent, d.logger)
	d.sup = supervisor.New(d.ctx, d.registry, d.settings, d.client, d.sched, d.notifier, d.logger)
	d.sched.SetStarter(d.sup.Execute)

	// Jobs left in downloading by a crash cannot be resumed; queued jobs
	// are re-admitted in their stored submission order.
	d.registry.ResetInterrupted(d.ctx)
	for _, job := range d.registry.Queued() {
		d.sched.Enqueue(job.ID)
	}

	d.writePIDFile()
	d.running.Store(true)
	d.logger.Info("snatch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("db", d.blobs.Path()))
	return nil
}

// Stop kills running processes, releases the lock, and removes the pid
// file. Interrupted jobs are finalized on the next startup.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.sup != nil {
		d.sup.Shutdown()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.releaseLock()
	_ = os.Remove(d.cfg.PIDPath())
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("snatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.blobs != nil {
		return d.blobs.Close()
	}
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

func (d *Daemon) writePIDFile() {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(d.cfg.PIDPath(), []byte(pid+"\n"), 0o644); err != nil {
		d.logger.Warn("failed to write pid file", logging.Error(err))
	}
}

// FetchInfo resolves a source URL into selectable encodings.
func (d *Daemon) FetchInfo(ctx context.Context, url string) (ytdlp.Info, error) {
	info, err := d.client.Resolve(ctx, url)
	if err != nil {
		d.logger.Warn("metadata lookup failed",
			logging.String(logging.FieldURL, url),
			logging.Error(err))
		return ytdlp.Info{}, err
	}
	return info, nil
}

// StartDownload validates and queues a new job, returning its id.
func (d *Daemon) StartDownload(ctx context.Context, url, formatID, title string, audioOnly bool) (download.Download, error) {
	if !d.running.Load() {
		return download.Download{}, errors.New("daemon is not running")
	}
	url = strings.TrimSpace(url)
	if !ytdlp.IsSupportedURL(url) {
		return download.Download{}, fmt.Errorf("start download: %w", ytdlp.ErrUnsupportedURL)
	}

	format := strings.TrimSpace(formatID)
	if audioOnly {
		format = fmt.Sprintf("Audio (%s)", d.settings.Current().AudioFormat)
	} else if format == "" {
		return download.Download{}, errors.New("start download: a format selection is required")
	}

	if strings.TrimSpace(title) == "" {
		title = ytdlp.FallbackTitle(url)
	}

	job, err := d.registry.Create(ctx, title, url, format, audioOnly)
	if err != nil {
		return download.Download{}, fmt.Errorf("create download: %w", err)
	}
	d.sched.Enqueue(job.ID)
	return job, nil
}

// Cancel terminates a job's process, removes it from the pending queue,
// and marks it cancelled. Already-terminal or unknown jobs report false.
func (d *Daemon) Cancel(ctx context.Context, id string) bool {
	job, ok := d.registry.Get(id)
	if !ok || job.Status.IsTerminal() {
		return false
	}

	d.sched.Remove(id)
	// Mark cancelled before killing so the exit observer sees a terminal
	// status and leaves the record alone.
	d.registry.Mutate(ctx, id, download.Mutation{
		Status: ptrStatus(download.StatusCancelled),
		Speed:  ptrString("0 KB/s"),
		ETA:    ptrString("00:00"),
	})
	d.sup.Terminate(id)
	d.logger.Info("download cancelled", logging.String(logging.FieldJobID, id))
	return true
}

// Retry clones a finished job into a fresh queued one.
func (d *Daemon) Retry(ctx context.Context, id string) (download.Download, error) {
	old, ok := d.registry.Get(id)
	if !ok {
		return download.Download{}, fmt.Errorf("retry job %s: %w", id, download.ErrNotFound)
	}
	if !old.Status.IsTerminal() {
		return download.Download{}, fmt.Errorf("retry: job %s is still %s", id, old.Status)
	}

	job, err := d.registry.Create(ctx, old.Title, old.URL, old.Format, old.AudioOnly)
	if err != nil {
		return download.Download{}, fmt.Errorf("retry: %w", err)
	}
	d.sched.Enqueue(job.ID)
	d.logger.Info("download retried",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("previous_job_id", id))
	return job, nil
}

// List returns every job, newest first.
func (d *Daemon) List() []download.Download {
	return d.registry.List()
}

// Get returns a single job by id.
func (d *Daemon) Get(id string) (download.Download, bool) {
	return d.registry.Get(id)
}

// Delete removes a job from history, terminating it first if necessary.
func (d *Daemon) Delete(ctx context.Context, id string) (bool, error) {
	if job, ok := d.registry.Get(id); ok && !job.Status.IsTerminal() {
		d.Cancel(ctx, id)
	}
	return d.registry.Delete(ctx, id)
}

// ClearCompleted removes all completed downloads from history.
func (d *Daemon) ClearCompleted(ctx context.Context) (int, error) {
	return d.registry.ClearCompleted(ctx)
}

// GetSettings returns the active runtime settings.
func (d *Daemon) GetSettings() settings.Settings {
	return d.settings.Current()
}

// SaveSettings validates, persists, and applies new runtime settings. A
// raised concurrency limit admits pending jobs immediately.
func (d *Daemon) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	saved, err := d.settings.Save(ctx, s)
	if err != nil {
		return settings.Settings{}, err
	}
	if d.sched != nil {
		d.sched.Kick()
	}
	return saved, nil
}

// Events returns change events newer than the given cursor, blocking up to
// wait for one to arrive.
func (d *Daemon) Events(ctx context.Context, after int64, wait time.Duration) ([]download.Event, int64) {
	return d.hub.Wait(ctx, after, wait)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns current daemon runtime information.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Counts:       d.registry.CountByStatus(),
		Dependencies: deps.CheckBinaries(deps.Defaults(d.cfg.YtDlpBinary())),
		DBPath:       d.blobs.Path(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
	}
	if d.sched != nil {
		status.Active = d.sched.Active()
		status.Pending = d.sched.Pending()
	}
	return status
}

func ptrStatus(s download.Status) *download.Status { return &s }
func ptrString(s string) *string                   { return &s }
