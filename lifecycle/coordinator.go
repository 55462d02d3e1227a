// Package lifecycle binds the HTTP listener, serves until a shutdown signal
// arrives, and drains in-flight requests before stopping.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"constserv/metrics"
)

// DefaultDrainTimeout bounds how long in-flight requests may run after shutdown starts.
const DefaultDrainTimeout = 30 * time.Second

// ErrAlreadyStarted is returned when Run is called more than once.
var ErrAlreadyStarted = errors.New("coordinator already started")

// State is a coordinator lifecycle state.
type State int32

const (
	Starting State = iota
	Serving
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Coordinator owns the listener and the consuming end of the shutdown signal.
type Coordinator struct {
	addr         string
	handler      http.Handler
	shutdown     *Shutdown
	drainTimeout time.Duration
	log          *zap.Logger

	state    atomic.Int32
	started  atomic.Bool
	ready    chan struct{}
	listener net.Addr
	mu       sync.RWMutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDrainTimeout sets the drain deadline. Zero or negative keeps the default.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.drainTimeout = d
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// NewCoordinator creates a coordinator that will listen on addr.
func NewCoordinator(addr string, handler http.Handler, shutdown *Shutdown, opts ...Option) *Coordinator {
	c := &Coordinator{
		addr:         addr,
		handler:      handler,
		shutdown:     shutdown,
		drainTimeout: DefaultDrainTimeout,
		log:          zap.NewNop(),
		ready:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.setState(Starting)
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Ready is closed once the listener is bound and the coordinator is serving.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Addr returns the bound listener address, or nil before Ready.
func (c *Coordinator) Addr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listener
}

// Run binds the listener and serves until the shutdown signal fires, then
// drains in-flight requests. Cancelling ctx fires the signal with source
// "context". A bind failure is returned without ever entering Serving.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		c.setState(Stopped)
		return fmt.Errorf("failed to bind %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.listener = ln.Addr()
	c.mu.Unlock()

	srv := &http.Server{
		Handler:           c.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	c.setState(Serving)
	close(c.ready)
	c.log.Info("Starting server", zap.String("address", "http://"+ln.Addr().String()))

	// ctx 취소도 같은 종료 신호로 전달 (errgroup 중단 경로)
	stopAfter := context.AfterFunc(ctx, func() {
		c.shutdown.Trigger("context").Fire()
	})
	defer stopAfter()

	select {
	case <-c.shutdown.Done():
		c.log.Info("Shutdown requested, stopping server...")
	case err := <-serveErr:
		c.setState(Stopped)
		return fmt.Errorf("server failed: %w", err)
	}

	return c.drain(srv, serveErr)
}

// drain stops accepting connections and waits for in-flight requests.
func (c *Coordinator) drain(srv *http.Server, serveErr <-chan error) error {
	c.setState(Draining)

	// 종료 중에는 취소된 ctx 대신 새 타임아웃 컨텍스트 사용
	ctx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()

	var drainErr error
	if err := srv.Shutdown(ctx); err != nil {
		c.log.Warn("Graceful shutdown did not complete, closing connections",
			zap.Duration("timeout", c.drainTimeout), zap.Error(err))
		if closeErr := srv.Close(); closeErr != nil {
			c.log.Error("Error closing server", zap.Error(closeErr))
		}
		drainErr = fmt.Errorf("drain incomplete: %w", err)
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.log.Error("Server error during drain", zap.Error(err))
	}

	c.setState(Stopped)
	c.log.Info("Server stopped")
	return drainErr
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	metrics.SetLifecycleState(int(s))
}
