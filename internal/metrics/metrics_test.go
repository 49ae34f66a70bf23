package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestParseErrorsTotalIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	ParseErrorsTotal.WithLabelValues("plc_debug").Inc()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "plc_parse_errors_total" {
			found = true
		}
	}
	assert.True(t, found)
}
