package lpd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stream builds a peer-side byte stream for a session.
type stream struct {
	bytes.Buffer
}

func (s *stream) job(queue string) *stream {
	s.WriteByte(0x02)
	s.WriteString(queue)
	s.WriteByte('\n')
	return s
}

func (s *stream) file(cmd byte, name, payload string) *stream {
	fmt.Fprintf(&s.Buffer, "%c%d %s\n", cmd, len(payload), name)
	s.WriteString(payload)
	s.WriteByte(0) // peer acknowledges its own transfer
	return s
}

func (s *stream) control(name, payload string) *stream { return s.file(0x02, name, payload) }
func (s *stream) data(name, payload string) *stream    { return s.file(0x03, name, payload) }

// captureLauncher records the helper handoff instead of running anything.
type captureLauncher struct {
	queueDir string
	dataFile string
	env      []string
	called   bool
	err      error
}

func (c *captureLauncher) Launch(ctx context.Context, queueDir, dataFile string, env []string) error {
	c.called = true
	c.queueDir = queueDir
	c.dataFile = dataFile
	c.env = env
	return c.err
}

func newSpoolRoot(t *testing.T, queues ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, q := range queues {
		require.NoError(t, os.Mkdir(filepath.Join(root, q), 0o755))
	}
	return root
}

func runSession(t *testing.T, in *stream, cfg Config) (*bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	session := NewSession(&in.Buffer, &out, cfg, nil)
	err := session.Run(context.Background())
	return &out, err
}

func TestSpoolingJobWithHelper(t *testing.T) {
	root := newSpoolRoot(t, "laser")
	launcher := &captureLauncher{}

	in := new(stream).
		job("laser").
		control("cfA001host", "Hworkstation\nPalice\nJreport\nldfA001host\n").
		data("dfA001host", "hello printer\n")

	out, err := runSession(t, in, Config{SpoolDir: root, Helper: launcher})
	require.NoError(t, err)

	// One ready byte per subcommand prompt plus the final pre-helper one
	assert.Equal(t, []byte{0, 0, 0}, out.Bytes())

	require.True(t, launcher.called)
	assert.Equal(t, filepath.Join(root, "laser"), launcher.queueDir)
	assert.Equal(t, "dfA001host", launcher.dataFile)
	assert.Equal(t, []string{
		"DATAFILE=dfA001host",
		"H=workstation",
		"P=alice",
		"J=report",
		"l=dfA001host",
	}, launcher.env)

	// The control file is consumed before the helper runs
	assert.NoFileExists(t, filepath.Join(root, "laser", "cfA001host"))

	// The data file is committed and readable
	dataPath := filepath.Join(root, "laser", "dfA001host")
	content, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	assert.Equal(t, "hello printer\n", string(content))

	info, err := os.Stat(dataPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSpoolingJobWithoutHelper(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		control("cfA001host", "Hhost\n").
		data("dfA001host", "payload")

	_, err := runSession(t, in, Config{SpoolDir: root})
	require.NoError(t, err)

	// Both files stay in the queue for out-of-band processing
	assert.FileExists(t, filepath.Join(root, "laser", "cfA001host"))
	assert.FileExists(t, filepath.Join(root, "laser", "dfA001host"))
}

func TestSpoolingDataBeforeControl(t *testing.T) {
	// Subcommand order is the peer's choice
	root := newSpoolRoot(t, "laser")
	launcher := &captureLauncher{}

	in := new(stream).
		job("laser").
		data("dfA001host", "payload").
		control("cfA001host", "Palice\n")

	_, err := runSession(t, in, Config{SpoolDir: root, Helper: launcher})
	require.NoError(t, err)
	assert.True(t, launcher.called)
	assert.Equal(t, []string{"DATAFILE=dfA001host", "P=alice"}, launcher.env)
}

func TestSinkModeAppendsData(t *testing.T) {
	root := t.TempDir()
	sinkPath := filepath.Join(root, "lp0")
	require.NoError(t, os.WriteFile(sinkPath, []byte("existing|"), 0o644))

	in := new(stream).
		job("lp0").
		control("cfA001host", "Hhost\nPalice\n").
		data("dfA001host", "raw job bytes")

	_, err := runSession(t, in, Config{SpoolDir: root})
	require.NoError(t, err)

	// Control content is discarded, data is appended
	content, err := os.ReadFile(sinkPath)
	require.NoError(t, err)
	assert.Equal(t, "existing|raw job bytes", string(content))
}

func TestSinkModeNeverLaunchesHelper(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lp0"), nil, 0o644))
	launcher := &captureLauncher{}

	in := new(stream).
		job("lp0").
		control("cfA001host", "Hhost\n").
		data("dfA001host", "bytes")

	_, err := runSession(t, in, Config{SpoolDir: root, Helper: launcher})
	require.NoError(t, err)
	assert.False(t, launcher.called)
}

func TestQueueNameIsSanitized(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("../la ser!").
		control("cfA001host", "Hhost\n").
		data("dfA001host", "payload")

	_, err := runSession(t, in, Config{SpoolDir: root})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "laser", "dfA001host"))
}

func TestQueueNameSanitizesToNothing(t *testing.T) {
	in := new(stream).job("...")

	out, err := runSession(t, in, Config{SpoolDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, KindEmptyQueueName, Classify(err))

	// Quiet error: nothing is written to the peer
	assert.Empty(t, out.Bytes())
}

func TestUnsupportedCommand(t *testing.T) {
	var in stream
	in.WriteString("\x01laser\n")

	out, err := runSession(t, &in, Config{SpoolDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedCommand, Classify(err))
	assert.Equal(t, "Command 01 is not supported\n", out.String())
}

func TestDuplicateSubcommand(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		data("dfA001host", "first").
		data("dfB001host", "second")

	out, err := runSession(t, in, Config{SpoolDir: root})
	require.Error(t, err)
	assert.Equal(t, KindDuplicateSubcommand, Classify(err))
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("Duplicated subcommand\n")))

	// The first file is rolled back along with the session
	assert.NoFileExists(t, filepath.Join(root, "laser", "dfA001host"))
}

func TestBadFilename(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		data("...", "payload")

	out, err := runSession(t, in, Config{SpoolDir: root})
	require.Error(t, err)
	assert.Equal(t, KindBadFilename, Classify(err))
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("No or bad filename\n")))
}

func TestOversizedControlFile(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		control("cfA001host", "Hhost\n")

	out, err := runSession(t, in, Config{
		SpoolDir:        root,
		MaxControlBytes: 4,
	})
	require.Error(t, err)
	assert.Equal(t, KindOversizedControl, Classify(err))
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("File is too big\n")))
	assert.NoFileExists(t, filepath.Join(root, "laser", "cfA001host"))
}

func TestLengthMismatch(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	// Declare 100 bytes, deliver 7, then close the stream
	var in stream
	in.job("laser")
	in.WriteString("\x03100 dfA001host\n")
	in.WriteString("partial")

	out, err := runSession(t, &in, Config{SpoolDir: root})
	require.Error(t, err)
	assert.Equal(t, KindLengthMismatch, Classify(err))
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("Expected 100 but got 7 bytes\n")))

	// The partial file never becomes visible as a committed job
	assert.NoFileExists(t, filepath.Join(root, "laser", "dfA001host"))
}

func TestBadAck(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	var in stream
	in.job("laser")
	in.WriteString("\x037 dfA001host\n")
	in.WriteString("payload")
	in.WriteByte(1) // must be 0

	_, err := runSession(t, &in, Config{SpoolDir: root})
	require.Error(t, err)
	assert.Equal(t, KindBadAck, Classify(err))
	assert.NoFileExists(t, filepath.Join(root, "laser", "dfA001host"))
}

func TestPrematureEOFDiscardsPartialJob(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		control("cfA001host", "Hhost\n")
	// Stream ends with the data file never sent

	_, err := runSession(t, in, Config{SpoolDir: root})
	require.Error(t, err)
	assert.Equal(t, KindPrematureEOF, Classify(err))

	// The committed control file is taken back out of the queue
	assert.NoFileExists(t, filepath.Join(root, "laser", "cfA001host"))
}

func TestJobFileCollision(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	// A concurrent session already owns this name
	existing := filepath.Join(root, "laser", "dfA001host")
	require.NoError(t, os.WriteFile(existing, []byte("theirs"), 0o600))

	in := new(stream).
		job("laser").
		data("dfA001host", "mine")

	out, err := runSession(t, in, Config{SpoolDir: root})
	require.Error(t, err)
	assert.Equal(t, KindCreateFailed, Classify(err))
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("Cannot create dfA001host\n")))

	// The other session's file is untouched
	content, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "theirs", string(content))
}

func TestHelperFailure(t *testing.T) {
	root := newSpoolRoot(t, "laser")
	launcher := &captureLauncher{err: errors.New("exec: not found")}

	in := new(stream).
		job("laser").
		control("cfA001host", "Hhost\n").
		data("dfA001host", "payload")

	_, err := runSession(t, in, Config{SpoolDir: root, Helper: launcher})
	require.Error(t, err)
	assert.Equal(t, KindHelperFailed, Classify(err))

	// The job does not linger when the helper cannot take it
	assert.NoFileExists(t, filepath.Join(root, "laser", "dfA001host"))
}

func TestEmptyStream(t *testing.T) {
	var in stream
	out, err := runSession(t, &in, Config{SpoolDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, KindIOError, Classify(err))
	assert.Empty(t, out.Bytes())
}

func TestCancelledContext(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		control("cfA001host", "Hhost\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	session := NewSession(&in.Buffer, &out, Config{SpoolDir: root}, nil)
	err := session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroLengthDataFile(t *testing.T) {
	root := newSpoolRoot(t, "laser")

	in := new(stream).
		job("laser").
		control("cfA001host", "Hhost\n").
		data("dfA001host", "")

	_, err := runSession(t, in, Config{SpoolDir: root})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "laser", "dfA001host"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}
