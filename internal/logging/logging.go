// Package logging wires a process-wide logrus logger behind a small
// "named component error/message" surface: components log through a
// two-method Logger, while callers that want structured fields use the
// underlying logrus.Entry directly.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the two-method contract every component-scoped log sink
// satisfies.
type Logger interface {
	LogError(err error)
	LogMessage(msg string)
}

// componentLogger adapts a logrus.Entry (already carrying a "component"
// field) to the Logger contract.
type componentLogger struct {
	entry *logrus.Entry
	name  string
}

func (c *componentLogger) LogError(err error) {
	c.entry.WithError(err).Errorf("%s error", c.name)
}

func (c *componentLogger) LogMessage(msg string) {
	c.entry.Info(msg)
}

// base is the process-wide logrus logger every component derives from.
var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets the base logger's level and, when out is non-nil, its
// output destination. Until it is called, the base logger logs at Info
// level to stderr.
func Configure(level logrus.Level, out io.Writer) {
	base.SetLevel(level)
	if out != nil {
		base.SetOutput(out)
	}
}

// For returns a component-scoped Logger, e.g. For("chunkmanager").
func For(component string) Logger {
	return &componentLogger{entry: base.WithField("component", component), name: component}
}

// Entry returns the raw structured logrus.Entry for a component, for
// callers that want logrus's full field-attaching API rather than the
// two-method Logger contract.
func Entry(component string) *logrus.Entry {
	return base.WithField("component", component)
}
