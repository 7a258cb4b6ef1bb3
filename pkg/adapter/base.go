// Package adapter provides shared TCP lifecycle management for protocol
// listeners: accept loop, connection limiting and tracking, graceful
// shutdown with forced closure after a timeout, and connection metrics.
// Protocol-specific behavior is injected through a ConnectionFactory.
package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/lpspool/internal/logger"
)

// ConnectionHandler represents a protocol-specific connection that can
// serve requests. The Serve method blocks until the connection is done or
// the context is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates protocol-specific connection handlers for
// accepted TCP connections.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// MetricsRecorder allows the adapter to record connection lifecycle
// metrics. nil disables collection.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// BaseConfig holds configuration common to all protocol adapters.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty binds everywhere.
	BindAddress string

	// Port is the TCP port to listen on.
	Port int

	// MaxConnections limits concurrent client connections. 0 = unlimited.
	MaxConnections int

	// ShutdownTimeout is the maximum duration to wait for active
	// connections to complete during graceful shutdown.
	ShutdownTimeout time.Duration
}

// BaseAdapter owns the TCP accept loop and the shutdown machinery.
//
// All exported methods are safe for concurrent use; shutdown is idempotent
// through sync.Once.
type BaseAdapter struct {
	Config       BaseConfig
	protocolName string

	// Metrics is an optional recorder for connection lifecycle metrics.
	Metrics MetricsRecorder

	listener   net.Listener
	listenerMu sync.RWMutex

	// ListenerReady is closed when the listener accepts connections.
	// Used by tests to synchronize with server startup.
	ListenerReady chan struct{}

	// Shutdown is closed when graceful shutdown begins.
	Shutdown     chan struct{}
	shutdownOnce sync.Once

	// ShutdownCtx is cancelled during shutdown so in-flight sessions can
	// abort; CancelRequests triggers it.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	// activeConns tracks running connection goroutines for graceful
	// shutdown; ConnCount mirrors it for metrics and logging.
	activeConns sync.WaitGroup
	ConnCount   atomic.Int32

	// ActiveConnections maps remote address to net.Conn for forced
	// closure when the shutdown timeout expires.
	ActiveConnections sync.Map

	// connSemaphore bounds concurrency when MaxConnections > 0.
	connSemaphore chan struct{}
}

// NewBaseAdapter creates a stopped adapter; ServeWithFactory starts it.
//
// Returns a pointer to avoid copying sync primitives.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancelRequests,
		ListenerReady:  make(chan struct{}),
	}
}

// Addr returns the listener address, or "" before the listener is up.
func (b *BaseAdapter) Addr() string {
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener != nil {
		return b.listener.Addr().String()
	}
	return ""
}

// ServeWithFactory runs the accept loop until ctx is cancelled, handing
// each accepted connection to a handler created by factory.
//
// Returns nil on graceful shutdown, an error if the listener cannot start
// or connections had to be force-closed.
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory) error {
	listenAddr := fmt.Sprintf("%s:%d", b.Config.BindAddress, b.Config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to create %s listener on port %d: %w", b.protocolName, b.Config.Port, err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	close(b.ListenerReady)

	logger.Info(b.protocolName+" server listening", "address", listener.Addr().String())

	go func() {
		<-ctx.Done()
		logger.Info(b.protocolName+" shutdown signal received", "reason", ctx.Err())
		b.initiateShutdown()
	}()

	for {
		if b.connSemaphore != nil {
			select {
			case b.connSemaphore <- struct{}{}:
			case <-b.Shutdown:
				return b.gracefulShutdown()
			}
		}

		tcpConn, err := b.listener.Accept()
		if err != nil {
			if b.connSemaphore != nil {
				<-b.connSemaphore
			}
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
				logger.Debug("Error accepting "+b.protocolName+" connection", "error", err)
				continue
			}
		}

		b.activeConns.Add(1)
		b.ConnCount.Add(1)

		connAddr := tcpConn.RemoteAddr().String()
		b.ActiveConnections.Store(connAddr, tcpConn)

		currentConns := b.ConnCount.Load()
		if b.Metrics != nil {
			b.Metrics.RecordConnectionAccepted()
			b.Metrics.SetActiveConnections(currentConns)
		}

		logger.Debug(b.protocolName+" connection accepted", "address", connAddr, "active", currentConns)

		conn := factory.NewConnection(tcpConn)

		go func(addr string, tcp net.Conn) {
			defer func() {
				b.ActiveConnections.Delete(addr)
				b.activeConns.Done()
				b.ConnCount.Add(-1)
				if b.connSemaphore != nil {
					<-b.connSemaphore
				}

				if b.Metrics != nil {
					b.Metrics.RecordConnectionClosed()
					b.Metrics.SetActiveConnections(b.ConnCount.Load())
				}

				logger.Debug(b.protocolName+" connection closed", "address", addr, "active", b.ConnCount.Load())
			}()

			conn.Serve(b.ShutdownCtx)
		}(connAddr, tcpConn)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (b *BaseAdapter) Stop() {
	b.initiateShutdown()
}

// initiateShutdown closes the listener, interrupts blocking reads, and
// cancels in-flight session contexts.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")

		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", "error", err)
			}
		}
		b.listenerMu.Unlock()

		b.interruptBlockingReads()
		b.CancelRequests()
	})
}

// interruptBlockingReads sets a short deadline on all active connections
// to unblock sessions waiting in a read.
func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	b.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline on connection",
					"address", key, "error", err)
			}
		}
		return true
	})
}

// gracefulShutdown waits for active connections to finish, force-closing
// whatever is left when the timeout expires.
func (b *BaseAdapter) gracefulShutdown() error {
	activeCount := b.ConnCount.Load()
	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		"active", activeCount, "timeout", b.Config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info(b.protocolName + " graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown timeout exceeded - forcing closure", "remaining", remaining)

		b.ActiveConnections.Range(func(key, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				_ = conn.Close()
				if b.Metrics != nil {
					b.Metrics.RecordConnectionForceClosed()
				}
			}
			return true
		})

		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
	}
}
