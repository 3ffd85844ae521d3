package testoutput

import (
	"io"
	"os"
	"testing"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/sirupsen/logrus"
)

// New returns a writer that writes strings (assuming lines) to the testing
// logger.
func New(t testing.TB) io.Writer {
	return &testoutput{t}
}

// Logger wraps a logger at the call point to collect its downstream calls.
func Logger(t testing.TB, logger logging.Logger) logging.Logger {
	l := logger.WithFields(logrus.Fields{})
	l.Logger.SetOutput(New(t))
	l.Logger.SetLevel(logrus.TraceLevel)
	return l
}

// Setter may be given to logging to route root logger output through the
// testing facade. Parallel tests must not use this; they would write to the
// wrong test or to a Revert'd output.
func Setter(t testing.TB) logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(New(t))
		l.SetLevel(logrus.TraceLevel)
		return nil
	}
}

// Revert restores the root logger output to stderr.
func Revert() logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(os.Stderr)
		return nil
	}
}

type testoutput struct {
	t testing.TB
}

func (l *testoutput) Write(p []byte) (n int, err error) {
	l.t.Logf("%s", p)
	return len(p), nil
}
