package spool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenModeDetection(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "spooled"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lp0"), nil, 0o644))

	// ====================================================================
	// Directory resolves to spooling
	// ====================================================================

	q, err := Open(root, "spooled")
	require.NoError(t, err)
	assert.Equal(t, ModeSpooling, q.Mode())
	assert.Equal(t, "spooled", q.Name())
	assert.Equal(t, filepath.Join(root, "spooled"), q.Dir())

	// ====================================================================
	// Regular file resolves to sink
	// ====================================================================

	q, err = Open(root, "lp0")
	require.NoError(t, err)
	assert.Equal(t, ModeSink, q.Mode())

	// ====================================================================
	// Nonexistent target still resolves to sink; writability surfaces
	// at the first open
	// ====================================================================

	q, err = Open(root, "missing")
	require.NoError(t, err)
	assert.Equal(t, ModeSink, q.Mode())

	_, err = q.OpenSink()
	assert.Error(t, err)
}

func TestOpenRejectsBadNames(t *testing.T) {
	root := t.TempDir()

	_, err := Open(root, "")
	assert.Error(t, err)

	_, err = Open(root, "a/b")
	assert.Error(t, err)

	_, err = Open(root, "..")
	assert.Error(t, err)
}

func TestOpenSinkAppends(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "lp0")
	require.NoError(t, os.WriteFile(path, []byte("first|"), 0o644))

	q, err := Open(root, "lp0")
	require.NoError(t, err)

	f, err := q.OpenSink()
	require.NoError(t, err)
	_, err = f.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first|second", string(content))
}

func TestOpenSinkRejectedOnSpoolingQueue(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "q"), 0o755))

	q, err := Open(root, "q")
	require.NoError(t, err)

	_, err = q.OpenSink()
	assert.Error(t, err)
}

func TestCreateJobFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "q"), 0o755))

	q, err := Open(root, "q")
	require.NoError(t, err)

	job, err := q.CreateJobFile("dfA001host")
	require.NoError(t, err)
	assert.Equal(t, "dfA001host", job.Name())
	assert.Equal(t, filepath.Join(root, "q", "dfA001host"), job.Path())

	// In flight the file is write-only by owner
	info, err := os.Stat(job.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o200), info.Mode().Perm())

	// The name is taken now, even by the same queue handle
	_, err = q.CreateJobFile("dfA001host")
	assert.Error(t, err)

	job.Discard()
}

func TestCreateJobFileRejectsBadNames(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "q"), 0o755))

	q, err := Open(root, "q")
	require.NoError(t, err)

	_, err = q.CreateJobFile("")
	assert.Error(t, err)

	_, err = q.CreateJobFile("../escape")
	assert.Error(t, err)
}

func TestCreateJobFileRejectedOnSink(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lp0"), nil, 0o644))

	q, err := Open(root, "lp0")
	require.NoError(t, err)

	_, err = q.CreateJobFile("dfA001host")
	assert.Error(t, err)
}
