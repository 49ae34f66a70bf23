package batch

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWorkerInvocation(t *testing.T) {
	assert.True(t, IsWorkerInvocation([]string{"plcingest", internalWorkerFlag}))
	assert.False(t, IsWorkerInvocation([]string{"plcingest"}))
	assert.False(t, IsWorkerInvocation([]string{"plcingest", "--other-flag"}))
}

func TestRunWorkerMainRoundTrip(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	stdoutR, stdoutW, err := os.Pipe()
	require.NoError(t, err)

	req := workerRequest{
		Descriptor: Descriptor{
			RegexSource: `^(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+),(?P<device>[^,]+),(?P<signal>[^,]+),(?P<value>.*)$`,
		},
		Lines:      []string{"2024-01-15 10:00:00.000000,D1,S1,42"},
		LineOffset: 0,
	}
	payload, err := json.Marshal(&req)
	require.NoError(t, err)

	go func() {
		_, _ = stdinW.Write(payload)
		stdinW.Close()
	}()

	code := RunWorkerMain(stdinR, stdoutW)
	stdoutW.Close()
	assert.Equal(t, 0, code)

	out, err := io.ReadAll(stdoutR)
	require.NoError(t, err)

	var resp workerResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "D1", resp.Entries[0].DeviceID)
	assert.Equal(t, "S1", resp.Entries[0].SignalName)
}

func TestRunWorkerMainBadRequestReturnsNonZero(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	stdoutR, stdoutW, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		_, _ = stdinW.Write([]byte("not json"))
		stdinW.Close()
	}()

	code := RunWorkerMain(stdinR, stdoutW)
	stdoutW.Close()
	_, _ = io.ReadAll(stdoutR)
	assert.Equal(t, 1, code)
}

func TestValueFromWire(t *testing.T) {
	v, err := valueFromWire("boolean", "true")
	require.NoError(t, err)
	assert.True(t, v.Bool)

	v, err = valueFromWire("integer", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int)

	v, err = valueFromWire("string", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Text)
}
