package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv enables debug level of loggers returned by GetLogger.
const DebugEnv = "TONEGRAPH_DEBUG"

var debug bool

// Logger is a global interface for tonegraph loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv(DebugEnv))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// ForGraph returns a logger entry tagged with graph id.
func ForGraph(l *logrus.Logger, id string) Logger {
	return l.WithField("graph", id)
}
