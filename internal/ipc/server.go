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

	"shellcache/internal/cachestore"
	"shellcache/internal/controller"
	"shellcache/internal/daemon"
	"shellcache/internal/logging"
	"shellcache/internal/logs"
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
	if err := rpcServer.RegisterName("Shellcache", srv); err != nil {
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
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun shellcache stop"))
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

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.State = status.State
	resp.Version = status.Version
	resp.StaticStore = status.StaticStore
	resp.DynamicStore = status.DynamicStore
	resp.StaticEntries = status.StaticEntries
	resp.DynamicEntries = status.DynamicEntries
	resp.Listen = status.Listen
	resp.Upstream = status.Upstream
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockFilePath
	resp.PID = status.PID
	resp.InstanceID = status.InstanceID
	return nil
}

func (s *service) GetVersion(_ GetVersionRequest, resp *GetVersionResponse) error {
	reply, _ := s.daemon.Controller().HandleMessage(s.ctx, controller.Message{
		Type: controller.MessageGetVersion,
	})
	if reply == nil {
		return errors.New("controller returned no version reply")
	}
	resp.Type = reply.Type
	resp.Version = reply.Version
	return nil
}

func (s *service) SkipWaiting(_ SkipWaitingRequest, resp *SkipWaitingResponse) error {
	ctrl := s.daemon.Controller()
	_, _ = ctrl.HandleMessage(s.ctx, controller.Message{Type: controller.MessageSkipWaiting})
	resp.Requested = true
	resp.State = string(ctrl.State())
	s.log().Info("waiting phase skip requested via IPC",
		logging.String(logging.FieldEventType, "skip_waiting"))
	return nil
}

func (s *service) CacheURLs(req CacheURLsRequest, resp *CacheURLsResponse) error {
	if len(req.URLs) == 0 {
		return errors.New("cache urls requires at least one url")
	}
	s.log().Debug("cache urls requested", logging.Int("url_count", len(req.URLs)))
	stored, err := s.daemon.Controller().CacheURLs(s.ctx, req.URLs)
	resp.Stored = stored
	resp.Requested = len(req.URLs)
	if err != nil {
		return err
	}
	s.log().Info("urls cached via IPC",
		logging.String(logging.FieldEventType, "cache_urls"),
		logging.Int("stored_count", stored))
	return nil
}

// Message routes an arbitrary control message through the controller's
// dispatch path. Unrecognized types come back with Handled=false.
func (s *service) Message(req MessageRequest, resp *MessageResponse) error {
	reply, handled := s.daemon.Controller().HandleMessage(s.ctx, controller.Message{
		Type:    req.Type,
		Payload: req.Payload,
	})
	resp.Handled = handled
	if reply != nil {
		resp.Type = reply.Type
		resp.Version = reply.Version
		resp.Stored = reply.Stored
	}
	return nil
}

func (s *service) Push(req PushRequest, resp *PushResponse) error {
	err := s.daemon.Controller().Dispatch(s.ctx, controller.Event{
		Kind:    controller.EventPush,
		Payload: req.Payload,
	})
	if err != nil {
		resp.Delivered = false
		resp.Message = err.Error()
		return nil
	}
	resp.Delivered = true
	resp.Message = "push delivered"
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) StoreList(_ StoreListRequest, resp *StoreListResponse) error {
	infos, err := s.daemon.Controller().Store().Describe(s.ctx)
	if err != nil {
		return err
	}
	active := make(map[string]bool, 2)
	for _, name := range s.daemon.Controller().LookupOrder() {
		active[name] = true
	}
	resp.Stores = make([]StoreSummary, 0, len(infos))
	for _, info := range infos {
		resp.Stores = append(resp.Stores, StoreSummary{
			Name:      info.Name,
			Entries:   info.Entries,
			SizeBytes: info.SizeBytes,
			CreatedAt: info.CreatedAt,
			Active:    active[info.Name],
		})
	}
	return nil
}

func (s *service) StoreEntries(req StoreEntriesRequest, resp *StoreEntriesResponse) error {
	name := strings.TrimSpace(req.Store)
	if name == "" {
		return errors.New("store entries requires a store name")
	}
	entries, err := s.daemon.Controller().Store().Entries(s.ctx, name)
	if err != nil {
		return err
	}
	resp.Store = name
	resp.Entries = make([]EntrySummary, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, summarizeEntry(entry))
	}
	return nil
}

func summarizeEntry(entry cachestore.Entry) EntrySummary {
	contentType := ""
	if entry.Header != nil {
		contentType = entry.Header.Get("Content-Type")
	}
	return EntrySummary{
		URL:         entry.URL,
		Status:      entry.Status,
		ContentType: contentType,
		SizeBytes:   int64(len(entry.Body)),
		FetchedAt:   entry.FetchedAt,
	}
}
