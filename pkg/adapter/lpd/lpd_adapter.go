// Package lpd provides the TCP adapter that serves line printer daemon
// sessions over the network. Each accepted connection runs one session.
package lpd

import (
	"context"
	"net"
	"time"

	"github.com/marmos91/lpspool/internal/protocol/lpd"
	"github.com/marmos91/lpspool/pkg/adapter"
	"github.com/marmos91/lpspool/pkg/metrics"
)

// Config holds the adapter configuration.
type Config struct {
	// BindAddress is the IP address to bind to. Empty binds everywhere.
	BindAddress string

	// Port is the TCP port to listen on. The well-known printer port
	// is 515.
	Port int

	// MaxConnections limits concurrent client connections. 0 = unlimited.
	MaxConnections int

	// ShutdownTimeout bounds the graceful shutdown wait.
	ShutdownTimeout time.Duration

	// SpoolDir is the root directory holding the print queues.
	SpoolDir string

	// Helper, when non-nil, is launched after a spooled job completes.
	Helper lpd.HelperLauncher

	// MaxCommandBytes caps the length of a single protocol command line.
	MaxCommandBytes int

	// MaxControlBytes caps the size of an accepted control file.
	MaxControlBytes int64
}

// Adapter serves LPD sessions over TCP.
type Adapter struct {
	*adapter.BaseAdapter

	cfg     Config
	metrics metrics.SessionMetrics
}

// New creates a stopped adapter; Serve starts it.
func New(cfg Config, sessionMetrics metrics.SessionMetrics) *Adapter {
	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:     cfg.BindAddress,
		Port:            cfg.Port,
		MaxConnections:  cfg.MaxConnections,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, "LPD")
	base.Metrics = sessionMetrics

	return &Adapter{
		BaseAdapter: base,
		cfg:         cfg,
		metrics:     sessionMetrics,
	}
}

// Serve runs the accept loop until ctx is cancelled.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, &connectionFactory{adapter: a})
}

type connectionFactory struct {
	adapter *Adapter
}

func (f *connectionFactory) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return &connection{conn: conn, adapter: f.adapter}
}

// connection serves a single client connection as one session.
type connection struct {
	conn    net.Conn
	adapter *Adapter
}

func (c *connection) Serve(ctx context.Context) {
	defer c.conn.Close()

	cfg := c.adapter.cfg
	session := lpd.NewSession(c.conn, c.conn, lpd.Config{
		SpoolDir:        cfg.SpoolDir,
		Helper:          cfg.Helper,
		ClientAddr:      c.conn.RemoteAddr().String(),
		MaxCommandBytes: cfg.MaxCommandBytes,
		MaxControlBytes: cfg.MaxControlBytes,
	}, c.adapter.metrics)

	// Protocol errors are logged and reported to the peer inside Run.
	_ = session.Run(ctx)
}
