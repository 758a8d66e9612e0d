package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"snatch/internal/download"
	"snatch/internal/logging"
	"snatch/internal/notifications"
	"snatch/internal/scheduler"
	"snatch/internal/settings"
	"snatch/internal/ytdlp"
)

// Supervisor launches and observes one yt-dlp process per running job.
type Supervisor struct {
	ctx      context.Context
	registry *download.Registry
	settings *settings.Manager
	client   *ytdlp.Client
	sched    *scheduler.Scheduler
	notifier notifications.Service
	logger   *slog.Logger

	mu        sync.Mutex
	processes map[string]ytdlp.Process
}

// New builds a supervisor. ctx bounds the lifetime of every process it
// starts; cancelling it kills anything still running.
func New(
	ctx context.Context,
	registry *download.Registry,
	settingsMgr *settings.Manager,
	client *ytdlp.Client,
	sched *scheduler.Scheduler,
	notifier notifications.Service,
	logger *slog.Logger,
) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		ctx:       ctx,
		registry:  registry,
		settings:  settingsMgr,
		client:    client,
		sched:     sched,
		notifier:  notifier,
		logger:    logging.WithComponent(logger, "supervisor"),
		processes: make(map[string]ytdlp.Process),
	}
}

// Execute starts the external program for an admitted job. It returns an
// error only when no process was launched; in that case the job is marked
// failed here and the scheduler reclaims the slot.
func (s *Supervisor) Execute(id string) error {
	job, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("job %s no longer exists", id)
	}

	// Claim the job before touching anything. A cancel can land between
	// the scheduler popping the id and this call; once the record left
	// queued it must never run.
	if _, ok := s.registry.Transition(s.ctx, id, download.StatusQueued, download.StatusDownloading); !ok {
		return fmt.Errorf("job %s is no longer queued", id)
	}

	current := s.settings.Current()
	destDir := current.DownloadPath
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		s.failJob(id, fmt.Sprintf("create download directory: %v", err))
		return fmt.Errorf("create download directory: %w", err)
	}

	args, stem := s.client.BuildArgs(job.URL, job.Format, job.Title, job.AudioOnly, destDir, current.AudioFormat)

	s.logger.Info("download started",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldJobTitle, job.Title),
		logging.Bool("audio_only", job.AudioOnly))

	proc, err := s.client.Start(s.ctx, args, func(line string) {
		s.observeOutput(id, line)
	})
	if err != nil {
		s.failJob(id, err.Error())
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	s.mu.Lock()
	s.processes[id] = proc
	s.mu.Unlock()

	go s.observeExit(id, stem, destDir, proc)
	return nil
}

// Terminate kills the process associated with id, if any, and removes the
// association. It does not change job status; the caller decides what the
// termination means. Failure to kill is logged, never raised.
func (s *Supervisor) Terminate(id string) {
	s.mu.Lock()
	proc, ok := s.processes[id]
	delete(s.processes, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := proc.Kill(); err != nil {
		s.logger.Warn("failed to kill process",
			logging.String(logging.FieldJobID, id),
			logging.Error(err))
	}
}

// ActiveProcesses reports how many external processes are currently owned.
func (s *Supervisor) ActiveProcesses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processes)
}

// Shutdown kills every owned process. Used during daemon stop; the jobs
// themselves are reset to failed on next startup.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	procs := make(map[string]ytdlp.Process, len(s.processes))
	for id, proc := range s.processes {
		procs[id] = proc
	}
	s.processes = make(map[string]ytdlp.Process)
	s.mu.Unlock()

	for id, proc := range procs {
		if err := proc.Kill(); err != nil {
			s.logger.Warn("failed to kill process during shutdown",
				logging.String(logging.FieldJobID, id),
				logging.Error(err))
		}
	}
}

func (s *Supervisor) observeOutput(id, line string) {
	// Keep the raw output in the daemon log; on failure it is the only
	// record of what yt-dlp reported.
	s.logger.Debug("yt-dlp output",
		logging.String(logging.FieldJobID, id),
		logging.String("line", line))

	update := ytdlp.ParseProgress(line)
	if update.Empty() {
		return
	}
	s.registry.Mutate(s.ctx, id, download.Mutation{
		Progress:   update.Progress,
		Speed:      update.Speed,
		ETA:        update.ETA,
		Downloaded: update.Downloaded,
	})
}

func (s *Supervisor) observeExit(id, stem, destDir string, proc ytdlp.Process) {
	exitCode, waitErr := proc.Wait()

	s.mu.Lock()
	delete(s.processes, id)
	s.mu.Unlock()

	// Cancellation wins: once the job left downloading, exit handling
	// becomes a no-op.
	if job, ok := s.registry.Get(id); !ok || job.Status != download.StatusDownloading {
		s.sched.Done(id)
		return
	}

	switch {
	case waitErr != nil:
		s.failJob(id, waitErr.Error())
	case exitCode == 0:
		s.finalizeSuccess(id, stem, destDir)
	default:
		s.failJob(id, fmt.Sprintf("Download failed with code %d", exitCode))
	}

	s.sched.Done(id)
	s.maybeNotifyDrained()
}

func (s *Supervisor) finalizeSuccess(id, stem, destDir string) {
	filePath, size, found := findOutput(destDir, stem)
	if !found {
		s.failJob(id, "Downloaded file not found")
		return
	}

	sizeLabel := fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	snapshot, _ := s.registry.Mutate(s.ctx, id, download.Mutation{
		Status:     statusPtr(download.StatusCompleted),
		Progress:   floatPtr(100),
		Speed:      stringPtr("0 KB/s"),
		ETA:        stringPtr("00:00"),
		Size:       stringPtr(sizeLabel),
		Downloaded: stringPtr(sizeLabel),
		FilePath:   stringPtr(filePath),
	})

	s.logger.Info("download completed",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldJobTitle, snapshot.Title),
		logging.String(logging.FieldFilePath, filePath))
	if err := s.notifier.NotifyDownloadComplete(s.ctx, snapshot.Title, filePath); err != nil {
		s.logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (s *Supervisor) failJob(id, reason string) {
	snapshot, ok := s.registry.Mutate(s.ctx, id, download.Mutation{
		Status: statusPtr(download.StatusFailed),
		Error:  stringPtr(reason),
	})
	if !ok {
		return
	}

	s.logger.Error("download failed",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldJobTitle, snapshot.Title),
		logging.String(logging.FieldErrorHint, reason))
	if err := s.notifier.NotifyDownloadFailed(s.ctx, snapshot.Title, reason); err != nil {
		s.logger.Warn("failure notification failed", logging.Error(err))
	}
}

func (s *Supervisor) maybeNotifyDrained() {
	if s.sched.Active() != 0 || s.sched.Pending() != 0 {
		return
	}
	counts := s.registry.CountByStatus()
	completed := counts[download.StatusCompleted]
	failed := counts[download.StatusFailed]
	if completed+failed == 0 {
		return
	}
	if err := s.notifier.NotifyQueueDrained(s.ctx, completed, failed); err != nil {
		s.logger.Warn("queue notification failed", logging.Error(err))
	}
}

// findOutput scans destDir for a file whose name starts with stem,
// case-insensitively, and returns its path and size. The match is
// prefix-based because yt-dlp substitutes the final extension itself.
func findOutput(destDir, stem string) (string, int64, bool) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", 0, false
	}
	prefix := strings.ToLower(stem)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(entry.Name()), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		return filepath.Join(destDir, entry.Name()), info.Size(), true
	}
	return "", 0, false
}

func statusPtr(s download.Status) *download.Status { return &s }
func floatPtr(f float64) *float64                  { return &f }
func stringPtr(s string) *string                   { return &s }
