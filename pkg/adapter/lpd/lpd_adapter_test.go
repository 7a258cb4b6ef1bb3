package lpd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAdapter(t *testing.T, cfg Config) (*Adapter, context.CancelFunc, chan error) {
	t.Helper()

	adapter := New(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- adapter.Serve(ctx)
	}()

	select {
	case <-adapter.ListenerReady:
	case <-time.After(5 * time.Second):
		t.Fatal("listener never came up")
	}

	return adapter, cancel, done
}

func TestServeReceivesSpooledJob(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "laser"), 0o755))

	adapter, cancel, done := startAdapter(t, Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		ShutdownTimeout: 2 * time.Second,
		SpoolDir:        root,
	})
	defer cancel()

	conn, err := net.Dial("tcp", adapter.Addr())
	require.NoError(t, err)
	defer conn.Close()

	ctrl := "Hworkstation\nPalice\n"
	data := "job payload"
	_, err = fmt.Fprintf(conn, "\x02laser\n\x02%d cfA001host\n%s\x00\x03%d dfA001host\n%s\x00",
		len(ctrl), ctrl, len(data), data)
	require.NoError(t, err)

	// Half-close so the session sees a clean end of stream
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, reply, "one ready byte per prompt")

	content, err := os.ReadFile(filepath.Join(root, "laser", "dfA001host"))
	require.NoError(t, err)
	assert.Equal(t, data, string(content))
	assert.FileExists(t, filepath.Join(root, "laser", "cfA001host"))

	// Graceful shutdown with no connections left returns nil
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeReportsProtocolErrorToPeer(t *testing.T) {
	adapter, cancel, done := startAdapter(t, Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		ShutdownTimeout: 2 * time.Second,
		SpoolDir:        t.TempDir(),
	})
	defer cancel()

	conn, err := net.Dial("tcp", adapter.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("\x01laser\n"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "Command 01 is not supported\n", string(reply))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeHandlesConcurrentSessions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "laser"), 0o755))

	adapter, cancel, done := startAdapter(t, Config{
		BindAddress:     "127.0.0.1",
		Port:            0,
		MaxConnections:  4,
		ShutdownTimeout: 2 * time.Second,
		SpoolDir:        root,
	})
	defer cancel()

	runJob := func(id int) error {
		conn, err := net.Dial("tcp", adapter.Addr())
		if err != nil {
			return err
		}
		defer conn.Close()

		ctrl := "Palice\n"
		data := fmt.Sprintf("payload-%d", id)
		_, err = fmt.Fprintf(conn, "\x02laser\n\x02%d cfA%03dhost\n%s\x00\x03%d dfA%03dhost\n%s\x00",
			len(ctrl), id, ctrl, len(data), id, data)
		if err != nil {
			return err
		}
		if err := conn.(*net.TCPConn).CloseWrite(); err != nil {
			return err
		}
		_, err = io.ReadAll(conn)
		return err
	}

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		i := i
		go func() { errs <- runJob(i) }()
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, <-errs)
	}

	for i := 0; i < 3; i++ {
		assert.FileExists(t, filepath.Join(root, "laser", fmt.Sprintf("dfA%03dhost", i)))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
