package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"ownership/internal/daemon"
	"ownership/internal/logging"
)

// ServiceName is the JSON-RPC service prefix, e.g. "Ownership.Check".
const ServiceName = "Ownership"

// Server exposes the daemon via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
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
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
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
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
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
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

// service holds the RPC methods. net/rpc requires exported methods of the
// form Method(args T, reply *R) error.
type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// call derives a per-request context tagged with a correlation ID.
func (s *service) call(method string) (context.Context, *slog.Logger, func()) {
	ctx := logging.WithRequestID(s.ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)
	start := time.Now()
	return ctx, logger, func() {
		logger.Debug("rpc handled",
			logging.String("method", method),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *service) Check(req CheckRequest, resp *CheckResponse) error {
	_, _, done := s.call("Check")
	defer done()
	*resp = checkResponseFrom(s.daemon.Check(req.Requests))
	return nil
}

func (s *service) CheckFile(req FileRequest, resp *OutcomeResponse) error {
	ctx, _, done := s.call("CheckFile")
	defer done()
	out, err := s.daemon.CheckFile(ctx, req.Path)
	resp.Outcome = out
	resp.Failure = failureFrom(err)
	return nil
}

func (s *service) Register(req RegisterRequest, resp *OutcomeResponse) error {
	ctx, logger, done := s.call("Register")
	defer done()
	out, err := s.daemon.Register(ctx, req.Path, req.Owner)
	if err != nil {
		logger.Info("remote registration rejected",
			logging.String(logging.FieldEventType, "ipc_register_rejected"),
			logging.String(logging.FieldSourcePath, req.Path),
			logging.Error(err),
		)
	}
	resp.Outcome = out
	resp.Failure = failureFrom(err)
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	resp.Stats = s.daemon.Stats()
	return nil
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	ctx, _, done := s.call("Status")
	defer done()
	resp.Status = s.daemon.Status(ctx, req.IncludeChecks)
	return nil
}

func (s *service) Reload(_ ReloadRequest, resp *ReloadResponse) error {
	ctx, _, done := s.call("Reload")
	defer done()
	n, err := s.daemon.Reload(ctx)
	if err != nil {
		return err
	}
	resp.Records = n
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	ctx, _, done := s.call("TestNotification")
	defer done()
	sent, message, err := s.daemon.TestNotification(ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}
