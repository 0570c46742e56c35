package diag

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-level structured logger used to trace generation
// (job-list drains, polymorphic instantiation, RTTI relocation). It is
// silent by default; callers embedding this module in a driver raise the
// level to surface the trace.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   false,
		FullTimestamp:   false,
		DisableTimestamp: true,
	})
	return l
}

// SetVerbose raises the logger to Debug level, used by tests and the demo
// driver to observe job-list draining and instantiation traces.
func SetVerbose(verbose bool) {
	if verbose {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.WarnLevel)
	}
}
