package xferlog

import "github.com/sirupsen/logrus"

// Logrus adapts a *logrus.Logger (or logrus.Entry-compatible field set) to
// the Logger interface, so callers already standardized on logrus can wire
// it straight through to the transfer engines.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus wraps log, tagging every record with component=xfer so it is
// distinguishable from the rest of a host application's log stream.
func NewLogrus(log *logrus.Logger) *Logrus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logrus{entry: log.WithField("component", "xfer")}
}

func (l *Logrus) Debug(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logrus) Info(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logrus) Warn(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logrus) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

var _ Logger = (*Logrus)(nil)
