package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/parser"
)

func TestBuildDefaultDetectsPLCDebugFormat(t *testing.T) {
	reg := BuildDefault(false, false)

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.log")
	content := "2024-01-15 10:30:45.000000 [INFO] [/AreaA/Robot-01@Main] [cat:Running] (boolean) : ON\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := reg.Detect(path)
	require.NoError(t, err)
	assert.Equal(t, "plc_debug", p.Name())
}

func TestDetectFallsBackToDefault(t *testing.T) {
	reg := BuildDefault(false, false)

	dir := t.TempDir()
	path := filepath.Join(dir, "weird.log")
	content := "Robot-01 Running 10:30:45 ON boolean\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := reg.Detect(path)
	require.NoError(t, err)
	assert.Equal(t, "default", p.Name())
}

func TestParseForcesSingleThreadedOnlyForMCS(t *testing.T) {
	reg := New()
	mcs, ok := builtinByName("mcs_log", false, false)
	require.True(t, ok)
	reg.Register(mcs, false)

	dir := t.TempDir()
	path := filepath.Join(dir, "mcs.log")
	content := "2024-01-15 10:30:45.000000 [ADD=CMD-1, CARRIER-9] [Priority=5]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := reg.Parse(context.Background(), path, parser.Options{Workers: 8})
	require.True(t, result.Success())
}

func TestParseNamedUsesForcedParser(t *testing.T) {
	reg := BuildDefault(false, false)

	dir := t.TempDir()
	path := filepath.Join(dir, "ambiguous.log")
	content := "2024-01-15 10:30:45.000000,Press-03,FORCE,237\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := reg.ParseNamed(context.Background(), path, "csv_signal", parser.Options{Workers: 1})
	require.True(t, result.Success())
	require.Len(t, result.Data.Entries, 1)
	assert.Equal(t, "Press-03", result.Data.Entries[0].DeviceID)
}

func TestParseNamedUnknownNameIsWholeResultError(t *testing.T) {
	reg := BuildDefault(false, false)

	dir := t.TempDir()
	path := filepath.Join(dir, "any.log")
	require.NoError(t, os.WriteFile(path, []byte("irrelevant\n"), 0o644))

	result := reg.ParseNamed(context.Background(), path, "no_such_parser", parser.Options{Workers: 1})
	require.False(t, result.Success())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Reason, "ParserNameUnknown")
}
