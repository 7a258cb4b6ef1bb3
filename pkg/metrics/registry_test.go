package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())
	assert.Nil(t, NewSessionMetrics(), "disabled metrics must yield a nil interface")

	InitRegistry()
	assert.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	// Idempotent: the registry instance is stable
	reg := GetRegistry()
	InitRegistry()
	assert.Same(t, reg, GetRegistry())
}

func TestNilSafeObservers(t *testing.T) {
	// All helpers must tolerate a nil interface
	ObserveSessionEnd(nil, "spooling", time.Second, "ok")
	ObserveFileReceived(nil, "data", "spooling", 42)
	ObserveProtocolError(nil, "bad_length")
	ObserveProtocolError(nil, "")
}
