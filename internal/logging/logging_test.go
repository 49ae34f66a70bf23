package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestForLogsErrorAndMessage(t *testing.T) {
	var buf bytes.Buffer
	Configure(logrus.DebugLevel, &buf)
	defer Configure(logrus.InfoLevel, nil)

	log := For("parser")
	log.LogMessage("starting up")
	log.LogError(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "starting up")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "component=parser")
}

func TestEntryCarriesComponentField(t *testing.T) {
	e := Entry("chunkmanager")
	assert.Equal(t, "chunkmanager", e.Data["component"])
}
