package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/safe"
)

// Server exposes an Invoker to UI processes. Events emitted on the Server
// are broadcast to every client; events sent by clients are delivered to
// Server's listeners.
type Server struct {
	inbound  *events.Bus
	upgrader websocket.Upgrader

	mu      sync.Mutex
	invoker command.Invoker
	clients map[*conn]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

var (
	_ events.Source  = (*Server)(nil)
	_ events.Emitter = (*Server)(nil)
)

// NewServer returns a server for invoker. invoker may be nil and bound
// later with SetInvoker, for backends that emit through the server.
func NewServer(invoker command.Invoker) *Server {
	return &Server{
		invoker: invoker,
		inbound: events.NewBus(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		clients: make(map[*conn]context.CancelFunc),
	}
}

func (s *Server) SetInvoker(invoker command.Invoker) {
	s.mu.Lock()
	s.invoker = invoker
	s.mu.Unlock()
}

// Handler routes Path to the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.serveWS)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("Bridge listening", "addr", ln.Addr().String(), "path", Path)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Bridge upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := newConn(ws)
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		_ = c.close()
		return
	}
	s.clients[c] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	logger.Info("Bridge client connected", "remote", r.RemoteAddr, "clients", s.clientCount())
	defer func() {
		s.drop(c)
		s.wg.Done()
		logger.Info("Bridge client disconnected", "remote", r.RemoteAddr, "clients", s.clientCount())
	}()

	for {
		f, err := c.read()
		if errors.Is(err, errBadFrame) {
			logger.Warn("Dropping malformed bridge frame", "remote", r.RemoteAddr, "error", err)
			continue
		}
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Bridge read ended", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		s.dispatch(ctx, c, f)
	}
}

func (s *Server) dispatch(ctx context.Context, c *conn, f Frame) {
	switch f.Type {
	case FrameInvoke:
		safe.Go("bridge.invoke", func() {
			reply := s.invoke(ctx, f)
			if err := c.write(reply); err != nil {
				logger.Debug("Bridge reply not delivered", "command", f.Command, "error", err)
			}
		})
	case FrameEvent:
		payload, err := decodePayload(f.Payload)
		if err != nil {
			logger.Warn("Dropping event with malformed payload", "event", f.Event, "error", err)
			return
		}
		_ = s.inbound.Emit(f.Event, payload)
	default:
		logger.Warn("Ignoring bridge frame", "frame_type", f.Type)
	}
}

func (s *Server) invoke(ctx context.Context, f Frame) Frame {
	reply := Frame{ID: f.ID, Type: FrameResult}
	s.mu.Lock()
	inv := s.invoker
	s.mu.Unlock()
	var err error
	switch {
	case inv == nil:
		err = apperrors.New(apperrors.KindUnavailable, "Backend is starting; try again.", nil)
	case f.Command == command.SaveSettings:
		var req command.SaveRequest
		if err = decodeArgs(f.Args, &req); err == nil {
			err = inv.SaveSettings(ctx, req)
		}
	case command.IsTextCommand(f.Command):
		var req command.Request
		if err = decodeArgs(f.Args, &req); err == nil {
			var out string
			out, err = inv.Invoke(ctx, f.Command, req)
			if err == nil {
				reply.Result = &out
			}
		}
	default:
		err = apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Unknown command %q.", f.Command), command.ErrUnknownCommand)
	}
	reply.Error = toWire(err)
	return reply
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.New(apperrors.KindBadRequest, "Command arguments are malformed.", err)
	}
	return nil
}

// Listen subscribes to events sent by clients.
func (s *Server) Listen(name string, h events.Handler) (events.Unsubscribe, error) {
	return s.inbound.Listen(name, h)
}

// Emit broadcasts an event to every connected client.
func (s *Server) Emit(name string, payload any) error {
	f, err := eventFrame(name, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.write(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// clientCount returns the number of connected clients.
func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) drop(c *conn) {
	s.mu.Lock()
	cancel, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		cancel()
		_ = c.close()
	}
}

// Close disconnects every client and rejects new ones.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.drop(c)
	}
	s.wg.Wait()
}
