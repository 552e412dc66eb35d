package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sirosfoundation/go-echo-server/pkg/config"
)

// State is a lifecycle state of a Server
type State int32

const (
	StateCreated State = iota
	StateListening
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrNotCreated is returned by Start on a server that was already started
	ErrNotCreated = errors.New("server already started")
	// ErrNotListening is returned by Shutdown on a server that is not listening
	ErrNotListening = errors.New("server is not listening")
	// ErrDrainTimeout is returned when in-flight requests outlive the drain timeout
	ErrDrainTimeout = errors.New("drain timeout exceeded, remaining connections closed")
)

// Server owns the listening socket and the HTTP serve loop.
// It moves through Created -> Listening -> Draining -> Stopped and cannot be restarted.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	logger  *zap.Logger

	mu         sync.Mutex
	state      atomic.Int32
	inFlight   atomic.Int64
	httpServer *http.Server
	listener   net.Listener

	serveErr   chan error
	shutdownCh <-chan struct{}
	onStop     []func()
}

// New creates a server in the Created state
func New(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		handler:  handler,
		logger:   logger.Named("server"),
		serveErr: make(chan error, 1),
	}
}

// WithShutdownChannel makes WaitForSignal also return when ch is closed.
// Tests use it to trigger shutdown without OS signals.
func (s *Server) WithShutdownChannel(ch <-chan struct{}) *Server {
	s.shutdownCh = ch
	return s
}

// OnStop registers fn to run once the server has stopped
func (s *Server) OnStop(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStop = append(s.onStop, fn)
}

// State returns the current lifecycle state
func (s *Server) State() State {
	return State(s.state.Load())
}

// InFlight returns the number of requests currently being served
func (s *Server) InFlight() int64 {
	return s.inFlight.Load()
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listening socket and serves requests in the background.
// A bind failure is returned and leaves the server in the Created state.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateCreated {
		return ErrNotCreated
	}

	addr := s.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	errorLog, err := zap.NewStdLogAt(s.logger.Named("http"), zapcore.ErrorLevel)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to create server error log: %w", err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.track(s.handler),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		ErrorLog:     errorLog,
	}
	s.state.Store(int32(StateListening))

	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
			s.serveErr <- err
		}
	}()

	return nil
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives, ctx is cancelled,
// the shutdown channel is closed or the serve loop fails.
func (s *Server) WaitForSignal(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		s.logger.Info("Termination requested", zap.NamedError("cause", context.Cause(sigCtx)))
		return nil
	case <-s.shutdownCh:
		s.logger.Info("Shutdown channel closed")
		return nil
	case err := <-s.serveErr:
		return fmt.Errorf("serve failed: %w", err)
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
// With a positive DrainTimeout, connections still open when it expires are
// closed and ErrDrainTimeout is returned. ctx bounds the wait as well.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.State() != StateListening {
		s.mu.Unlock()
		return ErrNotListening
	}
	s.state.Store(int32(StateDraining))
	onStop := s.onStop
	s.mu.Unlock()

	s.logger.Info("Draining in-flight requests",
		zap.Int64("in_flight", s.InFlight()),
		zap.Duration("drain_timeout", s.cfg.DrainTimeout))

	if s.cfg.DrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DrainTimeout)
		defer cancel()
	}

	var result error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("Drain did not complete, closing remaining connections",
			zap.Int64("in_flight", s.InFlight()),
			zap.Error(err))
		if cerr := s.httpServer.Close(); cerr != nil {
			s.logger.Error("Failed to close connections", zap.Error(cerr))
		}
		result = fmt.Errorf("%w: %v", ErrDrainTimeout, err)
	}

	for _, fn := range onStop {
		fn()
	}

	s.state.Store(int32(StateStopped))
	s.logger.Info("Server stopped")
	return result
}

// Run starts the server, waits for a termination signal and drains.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	waitErr := s.WaitForSignal(ctx)
	return errors.Join(waitErr, s.Shutdown(context.Background()))
}

// track counts requests for the lifetime of the handler call
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}
