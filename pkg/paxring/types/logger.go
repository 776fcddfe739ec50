package types

// Logger is the leveled logging contract every node, transport, and election
// loop is built against. A process may supply its own implementation; the
// default lives in pkg/paxring/definition and is backed by logrus.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	ToggleDebug(enabled bool) bool
}
