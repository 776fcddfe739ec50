package definition

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// LogrusLogger adapts a *logrus.Entry to types.Logger, so every log line
// carries structured fields (uid, component) instead of bare text.
type LogrusLogger struct {
	entry *logrus.Entry
	base  *logrus.Logger
}

// NewLogger builds a logger tagged with the given structured fields, logging
// to stderr in text form at Info level (Debug is opt-in via ToggleDebug).
func NewLogger(fields logrus.Fields) *LogrusLogger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
	return &LogrusLogger{
		entry: base.WithFields(fields),
		base:  base,
	}
}

func (l *LogrusLogger) Info(v ...interface{}) { l.entry.Info(v...) }
func (l *LogrusLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *LogrusLogger) Warn(v ...interface{}) { l.entry.Warn(v...) }
func (l *LogrusLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *LogrusLogger) Error(v ...interface{}) { l.entry.Error(v...) }
func (l *LogrusLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }
func (l *LogrusLogger) Debug(v ...interface{}) { l.entry.Debug(v...) }
func (l *LogrusLogger) Debugf(format string, v ...interface{}) { l.entry.Debugf(format, v...) }
func (l *LogrusLogger) Fatal(v ...interface{}) { l.entry.Fatal(v...) }
func (l *LogrusLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }

func (l *LogrusLogger) ToggleDebug(enabled bool) bool {
	if enabled {
		l.base.SetLevel(logrus.DebugLevel)
	} else {
		l.base.SetLevel(logrus.InfoLevel)
	}
	return enabled
}

var _ types.Logger = (*LogrusLogger)(nil)
