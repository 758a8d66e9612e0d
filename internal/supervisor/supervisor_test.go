package supervisor_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"snatch/internal/config"
	"snatch/internal/download"
	"snatch/internal/scheduler"
	"snatch/internal/settings"
	"snatch/internal/supervisor"
	"snatch/internal/testsupport"
	"snatch/internal/ytdlp"
)

type fakeProcess struct {
	mu       sync.Mutex
	exitCode int
	waitErr  error
	done     chan struct{}
	killed   bool
}

func (p *fakeProcess) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.waitErr
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.killed {
		p.killed = true
		close(p.done)
	}
	return nil
}

func (p *fakeProcess) exit(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.killed {
		p.exitCode = code
		close(p.done)
	}
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

type startRecord struct {
	args   []string
	onLine func(string)
	proc   *fakeProcess
}

type fakeExecutor struct {
	mu       sync.Mutex
	startErr error
	starts   []*startRecord
}

func (f *fakeExecutor) Output(context.Context, string, []string) ([]byte, error) {
	return nil, nil
}

func (f *fakeExecutor) Start(_ context.Context, _ string, args []string, onLine func(string)) (ytdlp.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	record := &startRecord{
		args:   append([]string(nil), args...),
		onLine: onLine,
		proc:   &fakeProcess{done: make(chan struct{})},
	}
	f.starts = append(f.starts, record)
	return record.proc, nil
}

func (f *fakeExecutor) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeExecutor) start(i int) *startRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.starts) {
		return nil
	}
	return f.starts[i]
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (f *fakeNotifier) NotifyDownloadComplete(_ context.Context, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, title)
	return nil
}

func (f *fakeNotifier) NotifyDownloadFailed(_ context.Context, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, title)
	return nil
}

func (f *fakeNotifier) NotifyQueueDrained(context.Context, int, int) error { return nil }
func (f *fakeNotifier) TestNotification(context.Context) error             { return nil }

func (f *fakeNotifier) completedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.completed...)
}

func (f *fakeNotifier) failedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failed...)
}

type harness struct {
	cfg      *config.Config
	registry *download.Registry
	sched    *scheduler.Scheduler
	sup      *supervisor.Supervisor
	exec     *fakeExecutor
	notifier *fakeNotifier
	mgr      *settings.Manager
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(limit))
	blobs := testsupport.MustOpenStore(t, cfg)
	registry := download.NewRegistry(blobs, nil, download.NewHub(0))
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("registry.Load: %v", err)
	}

	mgr := settings.NewManager(blobs, cfg, nil)
	if _, err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("settings.Load: %v", err)
	}

	exec := &fakeExecutor{}
	client, err := ytdlp.New("yt-dlp", 60, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("ytdlp.New: %v", err)
	}

	notifier := &fakeNotifier{}
	sched := scheduler.New(mgr.MaxConcurrent, nil)
	sup := supervisor.New(context.Background(), registry, mgr, client, sched, notifier, nil)
	sched.SetStarter(sup.Execute)

	return &harness{
		cfg:      cfg,
		registry: registry,
		sched:    sched,
		sup:      sup,
		exec:     exec,
		notifier: notifier,
		mgr:      mgr,
	}
}

func (h *harness) submit(t *testing.T, title string) download.Download {
	t.Helper()
	job, err := h.registry.Create(context.Background(), title, "https://youtu.be/abc", "137", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.sched.Enqueue(job.ID)
	return job
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSuccessfulDownloadFinalizesCompleted(t *testing.T) {
	h := newHarness(t, 1)
	job := h.submit(t, "My Clip")

	waitFor(t, "process start", func() bool { return h.exec.startCount() == 1 })
	record := h.exec.start(0)

	got, _ := h.registry.Get(job.ID)
	if got.Status != download.StatusDownloading {
		t.Fatalf("expected downloading status, got %q", got.Status)
	}

	record.onLine("[download]  45.2% of 120.50MiB at 2.30MiB/s ETA 00:32")
	waitFor(t, "progress update", func() bool {
		current, _ := h.registry.Get(job.ID)
		return current.Progress == 45.2
	})
	got, _ = h.registry.Get(job.ID)
	if got.Speed != "2.30MiB/s" || got.ETA != "00:32" || got.Downloaded != "120.50MiB" {
		t.Fatalf("unexpected progress fields: %+v", got)
	}

	testsupport.WriteFile(t, filepath.Join(h.mgr.Current().DownloadPath, "My_Clip.mp4"), 2*1024*1024)
	record.proc.exit(0)

	waitFor(t, "completion", func() bool {
		current, _ := h.registry.Get(job.ID)
		return current.Status == download.StatusCompleted
	})
	got, _ = h.registry.Get(job.ID)
	if got.Progress != 100 || got.FilePath == "" {
		t.Fatalf("unexpected final state: %+v", got)
	}
	if got.Size != "2.00 MB" || got.Downloaded != "2.00 MB" {
		t.Fatalf("unexpected size labels: size=%q downloaded=%q", got.Size, got.Downloaded)
	}
	if got.Speed != "0 KB/s" || got.ETA != "00:00" {
		t.Fatalf("unexpected rate fields: %+v", got)
	}

	waitFor(t, "completion notification", func() bool {
		return len(h.notifier.completedTitles()) == 1
	})
	if h.sched.Active() != 0 {
		t.Fatalf("expected slot released, active=%d", h.sched.Active())
	}
}

func TestOutputFileMatchIsCaseInsensitive(t *testing.T) {
	h := newHarness(t, 1)
	job := h.submit(t, "My Clip")

	waitFor(t, "process start", func() bool { return h.exec.startCount() == 1 })
	testsupport.WriteFile(t, filepath.Join(h.mgr.Current().DownloadPath, "my_clip.f137.mp4"), 1024)
	h.exec.start(0).proc.exit(0)

	waitFor(t, "completion", func() bool {
		current, _ := h.registry.Get(job.ID)
		return current.Status == download.StatusCompleted
	})
	got, _ := h.registry.Get(job.ID)
	if !strings.HasSuffix(got.FilePath, "my_clip.f137.mp4") {
		t.Fatalf("unexpected file path: %q", got.FilePath)
	}
}

func TestNonZeroExitFinalizesFailed(t *testing.T) {
	h := newHarness(t, 1)
	job := h.submit(t, "Broken")

	waitFor(t, "process start", func() bool { return h.exec.startCount() == 1 })
	h.exec.start(0).proc.exit(2)

	waitFor(t, "failure", func() bool {
		current, _ := h.registry.Get(job.ID)
		return current.Status == download.StatusFailed
	})
	got, _ := h.registry.Get(job.ID)
	if got.Error != "Download failed with code 2" {
		t.Fatalf("unexpected error detail: %q", got.Error)
	}
	if titles := h.notifier.failedTitles(); len(titles) != 1 || titles[0] != "Broken" {
		t.Fatalf("unexpected failure notifications: %v", titles)
	}
}

func TestZeroExitWithoutOutputFileFails(t *testing.T) {
	h := newHarness(t, 1)
	job := h.submit(t, "Ghost")

	waitFor(t, "process start", func() bool { return h.exec.startCount() == 1 })
	h.exec.start(0).proc.exit(0)

	waitFor(t, "failure", func() bool {
		current, _ := h.registry.Get(job.ID)
		return current.Status == download.StatusFailed
	})
	got, _ := h.registry.Get(job.ID)
	if got.Error != "Downloaded file not found" {
		t.Fatalf("unexpected error detail: %q", got.Error)
	}
}

func TestCancelledJobIsNotOverwrittenByExit(t *testing.T) {
	h := newHarness(t, 1)
	job := h.submit(t, "Cancelled")

	waitFor(t, "process start", func() bool { return h.exec.startCount() == 1 })
	record := h.exec.start(0)

	h.registry.Mutate(context.Background(), job.ID, download.StatusMutation(download.StatusCancelled))
	h.sup.Terminate(job.ID)

	waitFor(t, "process kill", func() bool { return record.proc.wasKilled() })
	waitFor(t, "slot release", func() bool { return h.sched.Active() == 0 })

	got, _ := h.registry.Get(job.ID)
	if got.Status != download.StatusCancelled {
		t.Fatalf("cancelled status must be final, got %q", got.Status)
	}
	if len(h.notifier.failedTitles()) != 0 {
		t.Fatal("cancelled jobs must not emit failure notifications")
	}
}

func TestSlotFreesForNextQueuedJob(t *testing.T) {
	h := newHarness(t, 1)
	first := h.submit(t, "First")
	h.submit(t, "Second")

	waitFor(t, "first start", func() bool { return h.exec.startCount() == 1 })
	if h.sched.Pending() != 1 {
		t.Fatalf("expected second job pending, got %d", h.sched.Pending())
	}

	testsupport.WriteFile(t, filepath.Join(h.mgr.Current().DownloadPath, "First.mp4"), 1024)
	h.exec.start(0).proc.exit(0)

	waitFor(t, "second start", func() bool { return h.exec.startCount() == 2 })
	got, _ := h.registry.Get(first.ID)
	if got.Status != download.StatusCompleted {
		t.Fatalf("unexpected first job state: %q", got.Status)
	}
}

func TestSpawnFailureMarksJobFailed(t *testing.T) {
	h := newHarness(t, 1)
	h.exec.mu.Lock()
	h.exec.startErr = context.DeadlineExceeded
	h.exec.mu.Unlock()

	job := h.submit(t, "NoSpawn")

	waitFor(t, "failure", func() bool {
		current, _ := h.registry.Get(job.ID)
		return current.Status == download.StatusFailed
	})
	if h.sched.Active() != 0 {
		t.Fatalf("expected slot released after spawn failure, active=%d", h.sched.Active())
	}
}

func TestTerminateUnknownIDIsNoop(t *testing.T) {
	h := newHarness(t, 1)
	h.sup.Terminate("never-started")
	if h.sup.ActiveProcesses() != 0 {
		t.Fatal("expected no tracked processes")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProcessOutputLinesAreLogged(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(1))
	blobs := testsupport.MustOpenStore(t, cfg)
	registry := download.NewRegistry(blobs, nil, download.NewHub(0))
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	mgr := settings.NewManager(blobs, cfg, nil)
	if _, err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("settings.Load: %v", err)
	}

	exec := &fakeExecutor{}
	client, err := ytdlp.New("yt-dlp", 60, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("ytdlp.New: %v", err)
	}

	logBuf := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sched := scheduler.New(mgr.MaxConcurrent, nil)
	sup := supervisor.New(context.Background(), registry, mgr, client, sched, &fakeNotifier{}, logger)
	sched.SetStarter(sup.Execute)

	job, err := registry.Create(context.Background(), "Noisy", "https://youtu.be/abc", "137", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sched.Enqueue(job.ID)
	waitFor(t, "process start", func() bool { return exec.startCount() == 1 })

	exec.start(0).onLine("ERROR: [youtube] abc: Video unavailable")
	waitFor(t, "stderr line in log", func() bool {
		return strings.Contains(logBuf.String(), "Video unavailable")
	})
}

func TestExecuteRefusesJobCancelledBeforeStart(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	job, err := h.registry.Create(ctx, "Raced", "https://youtu.be/abc", "137", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A cancel can arrive after the scheduler pops the id but before the
	// supervisor runs; by then the record is already cancelled.
	h.registry.Mutate(ctx, job.ID, download.StatusMutation(download.StatusCancelled))

	if err := h.sup.Execute(job.ID); err == nil {
		t.Fatal("expected Execute to refuse a cancelled job")
	}
	got, _ := h.registry.Get(job.ID)
	if got.Status != download.StatusCancelled {
		t.Fatalf("expected status to stay cancelled, got %q", got.Status)
	}
	if h.exec.startCount() != 0 {
		t.Fatalf("expected no process spawn, got %d", h.exec.startCount())
	}
}
