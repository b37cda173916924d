package ble

import (
	"fmt"

	logxi "github.com/mgutz/logxi/v1"
)

// Logger is the leveled logging interface threaded through the
// connection, discovery, and cache layers. ChildLogger scopes a logger to
// a bearer (or any other context) by attaching fixed fields to every
// subsequent call, the way a per-connection log line should carry its
// remote address without every call site repeating it.
type Logger interface {
	Debug(msg string, args ...interface{})
	Debugf(format string, args ...interface{})
	Info(msg string, args ...interface{})
	Infof(format string, args ...interface{})
	Warn(msg string, args ...interface{})
	Warnf(format string, args ...interface{})
	Error(msg string, args ...interface{})
	Errorf(format string, args ...interface{})
	ChildLogger(fields map[string]interface{}) Logger
}

// logxiLogger adapts github.com/mgutz/logxi to Logger.
type logxiLogger struct {
	l logxi.Logger
}

// NewLogger returns a Logger backed by logxi, named name.
func NewLogger(name string) Logger {
	return &logxiLogger{l: logxi.New(name)}
}

func (lg *logxiLogger) Debug(msg string, args ...interface{}) { lg.l.Debug(msg, args...) }
func (lg *logxiLogger) Debugf(format string, args ...interface{}) {
	lg.l.Debug(fmt.Sprintf(format, args...))
}
func (lg *logxiLogger) Info(msg string, args ...interface{}) { lg.l.Info(msg, args...) }
func (lg *logxiLogger) Infof(format string, args ...interface{}) {
	lg.l.Info(fmt.Sprintf(format, args...))
}
func (lg *logxiLogger) Warn(msg string, args ...interface{}) { lg.l.Warn(msg, args...) }
func (lg *logxiLogger) Warnf(format string, args ...interface{}) {
	lg.l.Warn(fmt.Sprintf(format, args...))
}
func (lg *logxiLogger) Error(msg string, args ...interface{}) { lg.l.Error(msg, args...) }
func (lg *logxiLogger) Errorf(format string, args ...interface{}) {
	lg.l.Error(fmt.Sprintf(format, args...))
}

// ChildLogger returns a Logger named "ble" followed by fields, e.g.
// "ble remote=00:11:22:33:44:55"; the parent's own name is not carried
// over. logxi loggers aren't structured the way
// logrus's are, so fields are folded into the logger name rather than
// passed as per-call key/value pairs.
func (lg *logxiLogger) ChildLogger(fields map[string]interface{}) Logger {
	name := "ble"
	for k, v := range fields {
		name += fmt.Sprintf(" %s=%v", k, v)
	}
	return &logxiLogger{l: logxi.New(name)}
}
