package logging

import (
	"io"
	"sync"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/sirupsen/logrus"
)

// Setter mutates the root logger under its lock.
type Setter func(*logrus.Logger) error

var root = struct {
	logger *logrus.Logger
	mutex  *sync.Mutex
}{
	logger: func() *logrus.Logger {
		l := logrus.New()
		l.SetFormatter(defaultFormatter())
		return l
	}(),
	mutex: &sync.Mutex{},
}

// Logger is the handle components log through, one per component with its
// name attached as a field.
type Logger interface {
	logrus.FieldLogger

	// FieldLogger predates logrus' trace level.
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Writer() *io.PipeWriter
	WriterLevel(logrus.Level) *io.PipeWriter
}

// New provides a component-scoped logger, applying any setters to the shared
// root logger first.
func New(component string, setters ...Setter) Logger {
	for _, setter := range setters {
		// no errors handling for now
		_ = Set(setter)
	}
	return root.logger.WithField("component", component)
}

// Set applies a mutation to the root logger shared by all components.
func Set(setter Setter) error {
	root.mutex.Lock()
	err := setter(root.logger)
	root.mutex.Unlock()
	return err
}

// Level provides a Setter for the named logrus level. Unparseable names fall
// back to debug so that a typo'd level surfaces more output, not less.
func Level(lvl string) Setter {
	l, err := logrus.ParseLevel(lvl)
	if err != nil {
		root.logger.WithError(err).Errorf("unable to parse provided level %q", lvl)
		l = logrus.DebugLevel
	}
	return func(r *logrus.Logger) error {
		r.SetLevel(l)
		return nil
	}
}

// defaultFormatter stamps lines itself unless stderr already reaches the
// systemd journal, which records its own timestamps.
func defaultFormatter() logrus.Formatter {
	if journal.Enabled() {
		return &logrus.TextFormatter{
			DisableTimestamp: true,
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp: true,
	}
}
