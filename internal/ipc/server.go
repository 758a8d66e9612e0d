package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"log/slog"

	"snatch/internal/daemon"
	"snatch/internal/download"
	"snatch/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Snatch", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun snatch stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Info(req InfoRequest, resp *InfoResponse) error {
	info, err := s.daemon.FetchInfo(s.ctx, req.URL)
	if err != nil {
		return err
	}
	resp.Info = info
	return nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	s.log().Debug("download submission requested", logging.String(logging.FieldURL, req.URL))
	job, err := s.daemon.StartDownload(s.ctx, req.URL, req.FormatID, req.Title, req.AudioOnly)
	if err != nil {
		return err
	}
	resp.Job = FromDownload(job)
	s.log().Info("download submitted via IPC",
		logging.String(logging.FieldEventType, "download_add"),
		logging.String(logging.FieldJobID, job.ID))
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	wanted := make(map[download.Status]struct{}, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := download.ParseStatus(status)
		if !ok {
			continue
		}
		wanted[parsed] = struct{}{}
	}

	jobs := s.daemon.List()
	resp.Jobs = make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if len(wanted) > 0 {
			if _, ok := wanted[job.Status]; !ok {
				continue
			}
		}
		resp.Jobs = append(resp.Jobs, FromDownload(job))
	}
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	if strings.TrimSpace(req.ID) == "" {
		return errors.New("describe requires a job id")
	}
	job, ok := s.daemon.Get(req.ID)
	if !ok {
		return fmt.Errorf("job %s: %w", req.ID, download.ErrNotFound)
	}
	resp.Job = FromDownload(job)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	s.log().Debug("cancel requested", logging.String(logging.FieldJobID, req.ID))
	resp.Cancelled = s.daemon.Cancel(s.ctx, req.ID)
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	s.log().Debug("retry requested", logging.String(logging.FieldJobID, req.ID))
	job, err := s.daemon.Retry(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = FromDownload(job)
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	removed, err := s.daemon.Delete(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) ClearCompleted(_ ClearCompletedRequest, resp *ClearCompletedResponse) error {
	removed, err := s.daemon.ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("completed downloads cleared",
		logging.String(logging.FieldEventType, "downloads_clear"),
		logging.Int("removed_count", removed))
	return nil
}

func (s *service) GetSettings(_ GetSettingsRequest, resp *SettingsResponse) error {
	resp.Settings = s.daemon.GetSettings()
	return nil
}

func (s *service) SaveSettings(req SaveSettingsRequest, resp *SettingsResponse) error {
	saved, err := s.daemon.SaveSettings(s.ctx, req.Settings)
	if err != nil {
		return err
	}
	resp.Settings = saved
	s.log().Info("settings saved via IPC",
		logging.String(logging.FieldEventType, "settings_save"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Active = status.Active
	resp.Pending = status.Pending
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockFilePath
	resp.Counts = make(map[string]int, len(status.Counts))
	for status, count := range status.Counts {
		resp.Counts[string(status)] = count
	}
	resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:      dep.Name,
			Command:   dep.Command,
			Available: dep.Available,
			Detail:    dep.Detail,
		})
	}
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	ctx := s.ctx
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	events, cursor := s.daemon.Events(ctx, req.After, wait)
	resp.Cursor = cursor
	resp.Events = make([]Event, 0, len(events))
	for _, event := range events {
		wire := Event{Seq: event.Seq, Type: string(event.Type), JobID: event.JobID}
		if event.Job != nil {
			job := FromDownload(*event.Job)
			wire.Job = &job
		}
		resp.Events = append(resp.Events, wire)
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
