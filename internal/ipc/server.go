package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"lapse/internal/daemon"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/services"
	"lapse/internal/session"
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
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
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
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun lapse stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(req StartRequest, resp *StartResponse) error {
	s.logger.Debug("session start requested", logging.String("workspace", req.Workspace))
	id, err := s.daemon.StartSession(s.ctx, req.Workspace)
	if err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.SessionID = id
	resp.Message = "recording started"
	s.logger.Info("session started via IPC",
		logging.String(logging.FieldEventType, "session_start"),
		logging.String(logging.FieldSessionID, id))
	return nil
}

func (s *service) TogglePause(_ TogglePauseRequest, resp *TogglePauseResponse) error {
	paused, err := s.daemon.TogglePause(s.ctx)
	if err != nil {
		resp.Message = err.Error()
		if services.Notice(err) {
			return nil
		}
		return err
	}
	resp.Paused = paused
	if paused {
		resp.Message = "recording paused"
	} else {
		resp.Message = "recording resumed"
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("session stop requested")
	if err := s.daemon.StopSession(s.ctx); err != nil {
		resp.Stopped = false
		resp.Message = err.Error()
		if services.Notice(err) {
			return nil
		}
		return err
	}
	resp.Stopped = true
	resp.Message = "recording stopping"
	s.logger.Info("session stopped via IPC",
		logging.String(logging.FieldEventType, "session_stop"))
	return nil
}

func convertSessionStatus(status session.Status) SessionStatus {
	return SessionStatus{
		State:        string(status.State),
		SessionID:    status.SessionID,
		Workspace:    status.Workspace,
		StartedAt:    status.StartedAt,
		FrameCount:   status.FrameCount,
		Progress:     status.Progress,
		LastArtifact: status.LastArtifact,
		LastCodec:    status.LastCodec,
		LastError:    status.LastError,
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Session = convertSessionStatus(status.Session)
	resp.HistoryDBPath = status.HistoryDBPath
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	if len(status.Dependencies) > 0 {
		resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			resp.Dependencies = append(resp.Dependencies, DependencyStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
		}
	}
	return nil
}

func convertHistoryEntry(record *history.Record) HistoryEntry {
	return HistoryEntry{
		SessionID:    record.SessionID,
		Workspace:    record.Workspace,
		StartedAt:    record.StartedAt,
		FinishedAt:   record.FinishedAt,
		Outcome:      string(record.Outcome),
		FrameCount:   record.FrameCount,
		ArtifactPath: record.ArtifactPath,
		Codec:        record.Codec,
		ErrorMessage: record.ErrorMessage,
	}
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	records, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		resp.Entries = append(resp.Entries, convertHistoryEntry(record))
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
