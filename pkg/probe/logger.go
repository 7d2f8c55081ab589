package probe

import "github.com/sirupsen/logrus"

var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLogger replaces the logger used by the probe backends. Applications that
// want debug-level bit traces or a custom formatter install their own
// instance here before opening an adapter.
func SetLogger(l *logrus.Logger) {
	logger = l
}

// Logger returns the logger shared by the probe backends.
func Logger() *logrus.Logger {
	return logger
}
